package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestHubBroadcastReachesAllSessions(t *testing.T) {
	h := NewHub(zerolog.Nop())
	s1 := newFakeSession("sess-1")
	s2 := newFakeSession("sess-2")
	h.addSession(s1)
	h.addSession(s2)

	h.Broadcast(EvAllIphones, []string{})

	for _, s := range []*fakeSession{s1, s2} {
		got := s.received()
		if len(got) != 1 || got[0].Event != EvAllIphones {
			t.Errorf("session %s: expected one all-iphones envelope, got %+v", s.id, got)
		}
	}
}

func TestHubSendTo(t *testing.T) {
	h := NewHub(zerolog.Nop())
	s1 := newFakeSession("sess-1")
	s2 := newFakeSession("sess-2")
	h.addSession(s1)
	h.addSession(s2)

	h.SendTo("sess-1", EvError, "nope")

	if got := s1.received(); len(got) != 1 || got[0].Event != EvError {
		t.Errorf("expected error envelope on sess-1, got %+v", got)
	}
	if got := s2.received(); len(got) != 0 {
		t.Errorf("sess-2 must not receive targeted events, got %+v", got)
	}
}

func TestHubSendToMissingSession(t *testing.T) {
	h := NewHub(zerolog.Nop())

	// Must not panic, must not deliver anywhere.
	h.SendTo("sess-gone", EvError, "nope")
}

func TestHubEnvelopeWireShape(t *testing.T) {
	h := NewHub(zerolog.Nop())
	s := newFakeSession("sess-1")
	h.addSession(s)

	h.Broadcast(EvIphoneDeleted, int64(7))

	env := s.received()[0]
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"event":"iphone-deleted","data":7}` {
		t.Errorf("unexpected wire frame: %s", raw)
	}
}

func TestHubRemoveSessionNotifiesRoomOnce(t *testing.T) {
	h := NewHub(zerolog.Nop())
	room := NewRoom(testChatConfig(), h, zerolog.Nop())
	h.SetRoom(room)

	stay := newFakeSession("sess-stay")
	leave := newFakeSession("sess-leave")
	h.addSession(stay)
	h.addSession(leave)

	room.HandleJoin("sess-stay", joinPayload("Ana"))
	room.HandleJoin("sess-leave", joinPayload("Bia"))

	h.removeSession(leave)
	h.removeSession(leave)

	if h.SessionCount() != 1 {
		t.Fatalf("expected 1 session left, got %d", h.SessionCount())
	}
	if room.PresentCount() != 1 {
		t.Fatalf("expected 1 present, got %d", room.PresentCount())
	}

	var leaveMsgs, presence int
	for _, env := range stay.received() {
		switch env.Event {
		case EvNewMessage:
			var m ChatMessage
			if err := json.Unmarshal(env.Data, &m); err != nil {
				t.Fatal(err)
			}
			if m.Kind == KindSystem && m.Text == "Bia saiu do chat" {
				leaveMsgs++
			}
		case EvUsersOnline:
			presence++
		}
	}
	if leaveMsgs != 1 {
		t.Errorf("expected exactly one leave announcement, got %d", leaveMsgs)
	}
	// One users-online per join plus one for the leave.
	if presence != 3 {
		t.Errorf("expected 3 users-online broadcasts, got %d", presence)
	}

	// The departed session must see none of it.
	for _, env := range leave.received() {
		var m ChatMessage
		if env.Event == EvNewMessage && json.Unmarshal(env.Data, &m) == nil && m.Text == "Bia saiu do chat" {
			t.Error("departed session received its own leave announcement")
		}
	}
}

func TestHubShutdownClosesSessions(t *testing.T) {
	h := NewHub(zerolog.Nop())
	s := newFakeSession("sess-1")
	h.addSession(s)

	go h.Run()
	h.Shutdown()

	// Run drains shutdown and closes every session before returning.
	deadline := time.Now().Add(2 * time.Second)
	for h.SessionCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 0 sessions after shutdown, got %d", h.SessionCount())
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if !closed {
		t.Error("session was not closed on shutdown")
	}
}
