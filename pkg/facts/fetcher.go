package facts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoCapture is returned by fetchers that hold no capture for a scope.
var ErrNoCapture = errors.New("no capture")

// Fetcher returns the raw device output for a configuration scope.
type Fetcher interface {
	Fetch(ctx context.Context, scope string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, scope string) (string, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, scope string) (string, error) {
	return f(ctx, scope)
}

// DirFetcher reads captures from <Dir>/<scope>.txt.
type DirFetcher struct {
	Dir string
}

// Fetch implements Fetcher.
func (f DirFetcher) Fetch(ctx context.Context, scope string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(f.Dir, scope+".txt"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w for %s in %s", ErrNoCapture, scope, f.Dir)
		}
		return "", fmt.Errorf("read capture %s: %w", scope, err)
	}
	return string(data), nil
}

// StaticFetcher serves captures from memory, keyed by scope.
type StaticFetcher map[string]string

// Fetch implements Fetcher.
func (f StaticFetcher) Fetch(ctx context.Context, scope string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, ok := f[scope]
	if !ok {
		return "", fmt.Errorf("%w for %s", ErrNoCapture, scope)
	}
	return raw, nil
}
