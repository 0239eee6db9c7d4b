package service

import (
	"context"
	"sync"
)

// fakeCaller records invalidations.
type fakeCaller struct {
	token string

	mu          sync.Mutex
	invalidated int
}

func (f *fakeCaller) Token() string { return f.token }

func (f *fakeCaller) Invalidate(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

func (f *fakeCaller) Invalidations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalidated
}
