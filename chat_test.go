package main

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/lojafone/vitrine/config"
)

func testChatConfig() config.ChatConfig {
	return config.ChatConfig{
		MaxMessageLength: 1000,
		RateLimit:        100,
		RateWindowSecs:   10,
		JoinMessage:      "%s entrou no chat",
		LeaveMessage:     "%s saiu do chat",
	}
}

func newTestRoom() (*Room, *fakeDispatcher) {
	out := &fakeDispatcher{}
	return NewRoom(testChatConfig(), out, zerolog.Nop()), out
}

func joinPayload(name string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"userName":%q}`, name))
}

func sendPayload(text string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"text":%q}`, text))
}

func TestJoin_FirstJoiner(t *testing.T) {
	room, out := newTestRoom()

	room.HandleJoin("sess-1", joinPayload("Ana"))

	events := out.all()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}

	// History goes to the joiner only, before any broadcast.
	if events[0].to != "sess-1" || events[0].event != EvMessageHistory {
		t.Fatalf("first event should be history to joiner, got %+v", events[0])
	}
	history, ok := events[0].data.([]ChatMessage)
	if !ok || len(history) != 1 {
		t.Fatalf("expected history with the join announcement, got %+v", events[0].data)
	}
	if history[0].Kind != KindSystem || history[0].Text != "Ana entrou no chat" {
		t.Errorf("unexpected join announcement: %+v", history[0])
	}

	if events[1].to != "" || events[1].event != EvUsersOnline {
		t.Fatalf("second event should be users-online broadcast, got %+v", events[1])
	}
	presence := events[1].data.(UsersOnline)
	if presence.Count != 1 || len(presence.Users) != 1 || presence.Users[0] != "Ana" {
		t.Errorf("unexpected presence: %+v", presence)
	}

	if events[2].to != "" || events[2].event != EvNewMessage {
		t.Fatalf("third event should be the join message broadcast, got %+v", events[2])
	}
}

func TestJoin_SecondJoinerGetsHistory(t *testing.T) {
	room, out := newTestRoom()

	room.HandleJoin("sess-1", joinPayload("Ana"))
	room.HandleSend("sess-1", sendPayload("Olá"))
	out.reset()

	room.HandleJoin("sess-2", joinPayload("Bia"))

	got := out.sentTo("sess-2")
	if len(got) != 1 || got[0].event != EvMessageHistory {
		t.Fatalf("expected history for the new joiner, got %+v", got)
	}
	history := got[0].data.([]ChatMessage)
	// Ana's join, Ana's message, Bia's join.
	if len(history) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(history))
	}
	if history[1].Kind != KindUser || history[1].Sender != "Ana" || history[1].Text != "Olá" {
		t.Errorf("unexpected user message in history: %+v", history[1])
	}

	presence := out.broadcasts()[0].data.(UsersOnline)
	if presence.Count != 2 {
		t.Errorf("expected presence count 2, got %d", presence.Count)
	}
}

func TestJoin_EmptyName(t *testing.T) {
	room, out := newTestRoom()

	room.HandleJoin("sess-1", joinPayload("  "))

	got := out.sentTo("sess-1")
	if len(got) != 1 || got[0].event != EvError || got[0].data != errChatNameRequired {
		t.Errorf("expected %q error, got %+v", errChatNameRequired, got)
	}
	if len(out.broadcasts()) != 0 {
		t.Error("rejected join must not broadcast")
	}
	if room.PresentCount() != 0 {
		t.Error("rejected join must not add presence")
	}
}

func TestJoin_SameNameIsNoop(t *testing.T) {
	room, out := newTestRoom()

	room.HandleJoin("sess-1", joinPayload("Ana"))
	out.reset()

	room.HandleJoin("sess-1", joinPayload("Ana"))

	if len(out.all()) != 0 {
		t.Errorf("re-join with same name should be a no-op, got %+v", out.all())
	}
	if room.PresentCount() != 1 {
		t.Errorf("expected 1 present, got %d", room.PresentCount())
	}
}

func TestJoin_DifferentNameRejected(t *testing.T) {
	room, out := newTestRoom()

	room.HandleJoin("sess-1", joinPayload("Ana"))
	out.reset()

	room.HandleJoin("sess-1", joinPayload("Beatriz"))

	got := out.sentTo("sess-1")
	if len(got) != 1 || got[0].data != errChatRenamed {
		t.Errorf("expected %q error, got %+v", errChatRenamed, got)
	}
}

func TestSend_Broadcasts(t *testing.T) {
	room, out := newTestRoom()

	room.HandleJoin("sess-1", joinPayload("Ana"))
	out.reset()

	// Client-supplied sender is ignored; the joined name is used.
	room.HandleSend("sess-1", json.RawMessage(`{"text":"Olá","sender":"Impostor"}`))

	bs := out.broadcasts()
	if len(bs) != 1 || bs[0].event != EvNewMessage {
		t.Fatalf("expected one new-message broadcast, got %+v", bs)
	}
	m := bs[0].data.(ChatMessage)
	if m.Kind != KindUser || m.Sender != "Ana" || m.Text != "Olá" {
		t.Errorf("unexpected message: %+v", m)
	}
	// Join announcement was id 1.
	if m.ID != 2 {
		t.Errorf("expected message id 2, got %d", m.ID)
	}
}

func TestSend_NotIdentified(t *testing.T) {
	room, out := newTestRoom()

	room.HandleSend("sess-1", sendPayload("hi"))

	got := out.sentTo("sess-1")
	if len(got) != 1 || got[0].data != errChatNotIdentified {
		t.Errorf("expected %q error, got %+v", errChatNotIdentified, got)
	}
	if len(out.broadcasts()) != 0 {
		t.Error("unidentified send must not broadcast")
	}
}

func TestSend_EmptyText(t *testing.T) {
	room, out := newTestRoom()

	room.HandleJoin("sess-1", joinPayload("Ana"))
	out.reset()

	room.HandleSend("sess-1", sendPayload("   "))

	got := out.sentTo("sess-1")
	if len(got) != 1 || got[0].data != errChatTextRequired {
		t.Errorf("expected %q error, got %+v", errChatTextRequired, got)
	}
}

func TestSend_TooLong(t *testing.T) {
	cfg := testChatConfig()
	cfg.MaxMessageLength = 5
	out := &fakeDispatcher{}
	room := NewRoom(cfg, out, zerolog.Nop())

	room.HandleJoin("sess-1", joinPayload("Ana"))
	out.reset()

	room.HandleSend("sess-1", sendPayload("mensagem longa"))

	got := out.sentTo("sess-1")
	if len(got) != 1 || got[0].data != errChatTextTooLong {
		t.Errorf("expected %q error, got %+v", errChatTextTooLong, got)
	}
}

func TestSend_RateLimited(t *testing.T) {
	cfg := testChatConfig()
	cfg.RateLimit = 1
	out := &fakeDispatcher{}
	room := NewRoom(cfg, out, zerolog.Nop())

	room.HandleJoin("sess-1", joinPayload("Ana"))
	room.HandleSend("sess-1", sendPayload("um"))
	out.reset()

	room.HandleSend("sess-1", sendPayload("dois"))

	got := out.sentTo("sess-1")
	if len(got) != 1 || got[0].data != errChatRateLimited {
		t.Errorf("expected %q error, got %+v", errChatRateLimited, got)
	}
	if len(out.broadcasts()) != 0 {
		t.Error("rate-limited send must not broadcast")
	}
}

func TestLeave_Broadcasts(t *testing.T) {
	room, out := newTestRoom()

	room.HandleJoin("sess-1", joinPayload("Ana"))
	room.HandleJoin("sess-2", joinPayload("Bia"))
	out.reset()

	room.Leave("sess-1")

	bs := out.broadcasts()
	if len(bs) != 2 {
		t.Fatalf("expected leave message and presence broadcasts, got %+v", bs)
	}
	m := bs[0].data.(ChatMessage)
	if m.Kind != KindSystem || m.Text != "Ana saiu do chat" {
		t.Errorf("unexpected leave message: %+v", m)
	}
	presence := bs[1].data.(UsersOnline)
	if presence.Count != 1 || presence.Users[0] != "Bia" {
		t.Errorf("unexpected presence after leave: %+v", presence)
	}
}

func TestLeave_NeverJoined(t *testing.T) {
	room, out := newTestRoom()

	room.Leave("sess-1")

	if len(out.all()) != 0 {
		t.Errorf("leave of an unidentified session must produce no events, got %+v", out.all())
	}
}

func TestMessageIDsStrictlyIncreasing(t *testing.T) {
	room, out := newTestRoom()

	room.HandleJoin("sess-1", joinPayload("Ana"))
	room.HandleJoin("sess-2", joinPayload("Bia"))
	room.HandleSend("sess-1", sendPayload("a"))
	room.HandleSend("sess-2", sendPayload("b"))
	room.Leave("sess-1")
	room.HandleSend("sess-2", sendPayload("c"))

	var last int64
	for _, e := range out.broadcasts() {
		if e.event != EvNewMessage {
			continue
		}
		m := e.data.(ChatMessage)
		if m.ID <= last {
			t.Fatalf("message id %d not greater than previous %d", m.ID, last)
		}
		last = m.ID
	}
	if last != 6 {
		t.Errorf("expected final message id 6, got %d", last)
	}
}

func TestPresenceCountAfterJoinsAndLeaves(t *testing.T) {
	room, _ := newTestRoom()

	const joins = 5
	for i := 0; i < joins; i++ {
		room.HandleJoin(fmt.Sprintf("sess-%d", i), joinPayload(fmt.Sprintf("user-%d", i)))
	}
	room.Leave("sess-0")
	room.Leave("sess-3")

	if got := room.PresentCount(); got != joins-2 {
		t.Errorf("expected %d present, got %d", joins-2, got)
	}
}
