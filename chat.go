package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/lojafone/vitrine/config"
	"github.com/lojafone/vitrine/ratelimit"
	"github.com/lojafone/vitrine/textseg"
)

// User-facing error strings for chat operations.
const (
	errChatNameRequired  = "a name is required to join the chat"
	errChatRenamed       = "session is already identified under another name"
	errChatNotIdentified = "join the chat before sending messages"
	errChatTextRequired  = "message text is required"
	errChatTextTooLong   = "message is too long"
	errChatRateLimited   = "too many messages, slow down"
)

// PresenceEntry is one identified session in the room.
type PresenceEntry struct {
	SessionID string
	Name      string
	JoinedAt  time.Time
}

// Room is the presence-tracked support chat. History is in-memory and
// append-only for the process lifetime; message ids come from a single
// monotonic counter and are never reused. Operations hold the room lock
// across their broadcasts, so chat events reach all sessions in one
// consistent order, independently of catalog mutations.
type Room struct {
	mu      sync.Mutex
	out     Dispatcher
	history []ChatMessage
	present map[string]PresenceEntry
	// Session ids in join order, for stable users-online lists.
	order     []string
	nextID    int64
	limiter   *ratelimit.Limiter
	maxLen    int
	joinTmpl  string
	leaveTmpl string
	log       zerolog.Logger
}

// NewRoom creates the chat room, fanning out through out.
func NewRoom(cfg config.ChatConfig, out Dispatcher, log zerolog.Logger) *Room {
	return &Room{
		out:       out,
		present:   make(map[string]PresenceEntry),
		limiter:   ratelimit.New(cfg.RateLimit, time.Duration(cfg.RateWindowSecs)*time.Second),
		maxLen:    cfg.MaxMessageLength,
		joinTmpl:  cfg.JoinMessage,
		leaveTmpl: cfg.LeaveMessage,
		log:       log.With().Str("component", "chat").Logger(),
	}
}

// HandleJoin identifies a session with a display name. The joiner gets the
// full message history (ending with their own join announcement); everyone
// gets the updated presence set and the join system message. Rejoining
// with the same name is a no-op; a different name is an error.
func (r *Room) HandleJoin(sid string, data json.RawMessage) {
	var msg MsgJoinChat
	if err := json.Unmarshal(data, &msg); err != nil {
		r.out.SendTo(sid, EvError, errChatNameRequired)
		return
	}
	name := strings.TrimSpace(msg.UserName)
	if name == "" {
		r.out.SendTo(sid, EvError, errChatNameRequired)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.present[sid]; ok {
		if entry.Name != name {
			r.out.SendTo(sid, EvError, errChatRenamed)
		}
		return
	}

	r.present[sid] = PresenceEntry{SessionID: sid, Name: name, JoinedAt: time.Now().UTC()}
	r.order = append(r.order, sid)

	joinMsg := r.appendSystem(fmt.Sprintf(r.joinTmpl, name))

	r.log.Info().Str("session", shortSID(sid)).Str("name", name).Msg("joined chat")

	history := append([]ChatMessage(nil), r.history...)
	r.out.SendTo(sid, EvMessageHistory, history)
	r.out.Broadcast(EvUsersOnline, r.usersOnline())
	r.out.Broadcast(EvNewMessage, joinMsg)
}

// HandleSend validates and appends a user message, broadcasting it to all
// sessions. Rejections go to the requester only and change nothing.
func (r *Room) HandleSend(sid string, data json.RawMessage) {
	var msg MsgSendMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		r.out.SendTo(sid, EvError, errChatTextRequired)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.present[sid]
	if !ok {
		r.out.SendTo(sid, EvError, errChatNotIdentified)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		r.out.SendTo(sid, EvError, errChatTextRequired)
		return
	}
	if r.maxLen > 0 && textseg.Count(text) > r.maxLen {
		r.log.Debug().Str("session", shortSID(sid)).
			Str("preview", textseg.Truncate(text, 32)).
			Msg("message over length limit")
		r.out.SendTo(sid, EvError, errChatTextTooLong)
		return
	}
	if !r.limiter.Allow(sid) {
		r.out.SendTo(sid, EvError, errChatRateLimited)
		return
	}

	r.nextID++
	m := ChatMessage{
		ID:        r.nextID,
		Text:      text,
		Sender:    entry.Name,
		Timestamp: time.Now().UTC(),
		Kind:      KindUser,
	}
	r.history = append(r.history, m)

	r.out.Broadcast(EvNewMessage, m)
}

// Leave removes a disconnected session from presence. A no-op for
// sessions that never identified.
func (r *Room) Leave(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.present[sid]
	if !ok {
		return
	}

	delete(r.present, sid)
	for i, id := range r.order {
		if id == sid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.limiter.Forget(sid)

	leaveMsg := r.appendSystem(fmt.Sprintf(r.leaveTmpl, entry.Name))

	r.log.Info().Str("session", shortSID(sid)).Str("name", entry.Name).Msg("left chat")

	r.out.Broadcast(EvNewMessage, leaveMsg)
	r.out.Broadcast(EvUsersOnline, r.usersOnline())
}

// PresentCount returns the number of identified sessions.
func (r *Room) PresentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.present)
}

// appendSystem appends a system message to history. Must be called with
// mu held.
func (r *Room) appendSystem(text string) ChatMessage {
	r.nextID++
	m := ChatMessage{
		ID:        r.nextID,
		Text:      text,
		Sender:    "Sistema",
		Timestamp: time.Now().UTC(),
		Kind:      KindSystem,
	}
	r.history = append(r.history, m)
	return m
}

// usersOnline builds the presence payload. Must be called with mu held.
func (r *Room) usersOnline() UsersOnline {
	users := lo.Map(r.order, func(id string, _ int) string {
		return r.present[id].Name
	})
	return UsersOnline{Users: users, Count: len(users)}
}
