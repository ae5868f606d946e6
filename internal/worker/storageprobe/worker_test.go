package storageprobe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mockPinger struct {
	mu  sync.Mutex
	err error
}

func (p *mockPinger) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.err
}

func (p *mockPinger) set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

type mockStatus struct {
	mu      sync.Mutex
	history []bool
}

func (s *mockStatus) SetServing(serving bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, serving)
}

func (s *mockStatus) last() (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return false, false
	}

	return s.history[len(s.history)-1], true
}

func TestWorker_TracksStoreHealth(t *testing.T) {
	store := &mockPinger{}
	status := &mockStatus{}
	w := NewWorker(store, status)
	w.pollInterval = 10 * time.Millisecond

	go w.Start(context.Background())
	defer w.Stop()

	assert.Eventually(t, func() bool {
		serving, ok := status.last()
		return ok && serving
	}, time.Second, 5*time.Millisecond)

	store.set(errors.New("read-only file system"))
	assert.Eventually(t, func() bool {
		serving, ok := status.last()
		return ok && !serving
	}, time.Second, 5*time.Millisecond)
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	w := NewWorker(&mockPinger{}, &mockStatus{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
