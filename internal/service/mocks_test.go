package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Strob0t/buildnotify/internal/domain"
	"github.com/Strob0t/buildnotify/internal/domain/build"
	"github.com/Strob0t/buildnotify/internal/domain/notification"
	"github.com/Strob0t/buildnotify/internal/port/broadcast"
	"github.com/Strob0t/buildnotify/internal/port/cache"
	"github.com/Strob0t/buildnotify/internal/port/database"
	"github.com/Strob0t/buildnotify/internal/port/messagequeue"
	"github.com/Strob0t/buildnotify/internal/port/notifier"
)

// Compile-time interface checks for the doubles below.
var (
	_ notifier.Sender       = (*mockSender)(nil)
	_ database.Store        = (*memStore)(nil)
	_ cache.Cache           = (*memCache)(nil)
	_ broadcast.Broadcaster = (*recordingHub)(nil)
	_ messagequeue.Queue    = (*fakeQueue)(nil)
)

// sentCall is one recorded Send invocation.
type sentCall struct {
	target string
	msg    notification.Message
}

// mockSender records every call and returns sendErr, or panics when
// panicWith is set.
type mockSender struct {
	name      string
	sendErr   error
	panicWith any

	mu    sync.Mutex
	calls []sentCall
}

func (m *mockSender) Name() string                        { return m.name }
func (m *mockSender) Capabilities() notifier.Capabilities { return notifier.Capabilities{} }

func (m *mockSender) Send(_ context.Context, target string, msg notification.Message) error {
	m.mu.Lock()
	m.calls = append(m.calls, sentCall{target: target, msg: msg})
	m.mu.Unlock()
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	return m.sendErr
}

func (m *mockSender) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockSender) last() sentCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

// memStore is an in-memory database.Store.
type memStore struct {
	mu        sync.Mutex
	builds    map[string]map[int]build.Record
	outcomes  []notification.Outcome
	prevErr   error
	prevCalls int
}

func newMemStore() *memStore {
	return &memStore{builds: make(map[string]map[int]build.Record)}
}

func (s *memStore) SaveBuild(_ context.Context, rec *build.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.builds[rec.Project] == nil {
		s.builds[rec.Project] = make(map[int]build.Record)
	}
	cp := *rec
	cp.Previous = nil
	s.builds[rec.Project][rec.Number] = cp
	return nil
}

func (s *memStore) PreviousBuild(_ context.Context, project string, number int) (*build.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prevCalls++
	if s.prevErr != nil {
		return nil, s.prevErr
	}
	nums := make([]int, 0)
	for n := range s.builds[project] {
		if n < number {
			nums = append(nums, n)
		}
	}
	if len(nums) == 0 {
		return nil, domain.ErrNotFound
	}
	sort.Ints(nums)
	rec := s.builds[project][nums[len(nums)-1]]
	return &rec, nil
}

func (s *memStore) RecordOutcome(_ context.Context, o *notification.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = "id-" + o.Channel
	}
	s.outcomes = append(s.outcomes, *o)
	return nil
}

func (s *memStore) ListOutcomes(_ context.Context, project string, limit int) ([]notification.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notification.Outcome
	for i := len(s.outcomes) - 1; i >= 0 && len(out) < limit; i-- {
		if s.outcomes[i].Project == project {
			out = append(out, s.outcomes[i])
		}
	}
	return out, nil
}

// memCache is a map-backed cache.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// recordingHub captures broadcast events.
type recordingHub struct {
	mu       sync.Mutex
	events   []string
	payloads []any
}

func (h *recordingHub) BroadcastEvent(_ context.Context, eventType string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, eventType)
	h.payloads = append(h.payloads, payload)
}

func (h *recordingHub) count(eventType string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e == eventType {
			n++
		}
	}
	return n
}

// fakeQueue records published messages and hands out the subscribed handler.
type fakeQueue struct {
	mu        sync.Mutex
	published map[string][][]byte
	handler   messagequeue.Handler
}

func newFakeQueue() *fakeQueue { return &fakeQueue{published: make(map[string][][]byte)} }

func (q *fakeQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published[subject] = append(q.published[subject], data)
	return nil
}

func (q *fakeQueue) Subscribe(_ context.Context, _ string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.handler != nil {
		return nil, errors.New("already subscribed")
	}
	q.handler = h
	return func() {}, nil
}

func (q *fakeQueue) Drain() error      { return nil }
func (q *fakeQueue) Close() error      { return nil }
func (q *fakeQueue) IsConnected() bool { return true }
