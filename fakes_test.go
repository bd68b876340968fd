package main

import (
	"sync"
)

// sentEvent records one dispatched event. An empty "to" means broadcast.
type sentEvent struct {
	to    string
	event string
	data  any
}

// fakeDispatcher records dispatched events in issue order.
type fakeDispatcher struct {
	mu     sync.Mutex
	events []sentEvent
}

func (f *fakeDispatcher) Broadcast(event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{event: event, data: data})
}

func (f *fakeDispatcher) SendTo(sessionID, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{to: sessionID, event: event, data: data})
}

func (f *fakeDispatcher) all() []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEvent(nil), f.events...)
}

func (f *fakeDispatcher) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

// broadcasts returns only the broadcast events, in order.
func (f *fakeDispatcher) broadcasts() []sentEvent {
	var out []sentEvent
	for _, e := range f.all() {
		if e.to == "" {
			out = append(out, e)
		}
	}
	return out
}

// sentTo returns only the events sent to the given session, in order.
func (f *fakeDispatcher) sentTo(sessionID string) []sentEvent {
	var out []sentEvent
	for _, e := range f.all() {
		if e.to == sessionID {
			out = append(out, e)
		}
	}
	return out
}

// fakeSession implements sessionLink for hub tests.
type fakeSession struct {
	id string

	mu     sync.Mutex
	got    []*Envelope
	closed bool
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{id: id}
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Send(env *Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.got = append(s.got, env)
}

func (s *fakeSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSession) received() []*Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Envelope(nil), s.got...)
}
