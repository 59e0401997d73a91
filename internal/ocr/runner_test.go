package ocr

import (
	"context"
	"errors"
	"sync"
)

type call struct {
	name string
	args []string
}

// fakeRunner records calls and delegates to fn to emulate the command.
type fakeRunner struct {
	mu    sync.Mutex
	calls []call
	fn    func(name string, args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: append([]string(nil), args...)})
	f.mu.Unlock()
	if f.fn == nil {
		return nil, nil, nil
	}
	return f.fn(name, args)
}

var errExit = errors.New("exit status 1")
