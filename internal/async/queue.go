package async

import (
	"context"
	"time"
)

// Job is one document waiting to be processed.
type Job struct {
	Path        string
	SubmittedAt time.Time
}

// Handler processes one document path.
type Handler interface {
	Handle(ctx context.Context, path string) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, path string) error

func (f HandlerFunc) Handle(ctx context.Context, path string) error { return f(ctx, path) }

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
