package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
)

// Deduper remembers document contents by SHA-256 so a watcher does not
// reprocess a file whose bytes have not changed since it was last seen.
type Deduper struct {
	mu   sync.Mutex
	seen map[string]string // hash -> first path
}

func NewDeduper() *Deduper {
	return &Deduper{seen: map[string]string{}}
}

// Check hashes path and reports whether identical content was seen before.
// The first path seen with that content is returned as prev.
func (d *Deduper) Check(path string) (hashHex string, prev string, dup bool, err error) {
	hashHex, err = HashFile(path)
	if err != nil {
		return "", "", false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.seen[hashHex]; ok {
		return hashHex, p, true, nil
	}
	d.seen[hashHex] = path
	return hashHex, "", false, nil
}

// Forget drops a hash so the same content is processed again, e.g. after
// a failed attempt.
func (d *Deduper) Forget(hashHex string) {
	d.mu.Lock()
	delete(d.seen, hashHex)
	d.mu.Unlock()
}

// HashFile returns the hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
