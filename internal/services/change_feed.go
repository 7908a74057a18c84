package services

import (
	"context"
	"sync"

	"fintrack/internal/core"
)

// CommitHook runs after a write by user has committed.
type CommitHook func(ctx context.Context, user core.UserID)

// ChangeFeed fans committed writes out to in-process subscribers, in
// subscription order. A nil feed drops notifications.
type ChangeFeed struct {
	mu    sync.RWMutex
	hooks []CommitHook
}

func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{}
}

func (f *ChangeFeed) Subscribe(h CommitHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks = append(f.hooks, h)
}

func (f *ChangeFeed) notify(ctx context.Context, user core.UserID) {
	if f == nil {
		return
	}
	f.mu.RLock()
	hooks := f.hooks
	f.mu.RUnlock()
	for _, h := range hooks {
		h(ctx, user)
	}
}
