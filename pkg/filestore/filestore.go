// Package filestore abstracts where source assets live. Paths with a
// URI scheme (e.g. s3://bucket/key) route to a remote object store,
// bare paths to the local filesystem.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

type Store interface {
	Exists(ctx context.Context, path string) (bool, error)
	Read(ctx context.Context, path string) ([]byte, error)
	// Delete reports whether the object existed.
	Delete(ctx context.Context, path string) (bool, error)
}

// Local serves bare filesystem paths.
type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *Local) Read(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (l *Local) Delete(ctx context.Context, path string) (bool, error) {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Router dispatches by path shape. A remote store is optional; remote
// paths without one configured fail rather than silently touching disk.
type Router struct {
	local  Store
	remote Store
}

func NewRouter(remote Store) *Router {
	return &Router{local: NewLocal(), remote: remote}
}

func (r *Router) pick(path string) (Store, error) {
	if !isRemote(path) {
		return r.local, nil
	}
	if r.remote == nil {
		return nil, fmt.Errorf("no remote store configured for %s", path)
	}
	return r.remote, nil
}

func (r *Router) Exists(ctx context.Context, path string) (bool, error) {
	s, err := r.pick(path)
	if err != nil {
		return false, err
	}
	return s.Exists(ctx, path)
}

func (r *Router) Read(ctx context.Context, path string) ([]byte, error) {
	s, err := r.pick(path)
	if err != nil {
		return nil, err
	}
	return s.Read(ctx, path)
}

func (r *Router) Delete(ctx context.Context, path string) (bool, error) {
	s, err := r.pick(path)
	if err != nil {
		return false, err
	}
	return s.Delete(ctx, path)
}

func isRemote(path string) bool {
	scheme, _, ok := strings.Cut(path, "://")
	return ok && scheme != "" && !strings.ContainsAny(scheme, "/\\")
}

var (
	_ Store = (*Local)(nil)
	_ Store = (*Router)(nil)
)
