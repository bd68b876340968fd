package main

import (
	"encoding/json"
	"time"
)

// Inbound event names (client to server).
const (
	EvGetAllIphones = "get-all-iphones"
	EvCreateIphone  = "create-iphone"
	EvUpdateIphone  = "update-iphone"
	EvDeleteIphone  = "delete-iphone"
	EvJoinChat      = "join-chat"
	EvSendMessage   = "send-message"
)

// Outbound event names (server to client).
const (
	EvAllIphones     = "all-iphones"
	EvIphoneCreated  = "iphone-created"
	EvIphoneUpdated  = "iphone-updated"
	EvIphoneDeleted  = "iphone-deleted"
	EvError          = "error"
	EvMessageHistory = "message-history"
	EvNewMessage     = "new-message"
	EvUsersOnline    = "users-online"
)

// Envelope is the wire frame: one named event with a structured payload
// per WebSocket text frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope builds an outbound envelope, marshaling the payload once so
// a broadcast serializes its data a single time for all sessions.
func NewEnvelope(event string, data any) (*Envelope, error) {
	if data == nil {
		return &Envelope{Event: event}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{Event: event, Data: raw}, nil
}

// MsgCreateIphone is the create-iphone payload. Price is a pointer so that
// an explicit zero passes the required check while a missing field fails it.
type MsgCreateIphone struct {
	Name    string   `json:"name" validate:"required"`
	Model   string   `json:"model" validate:"required"`
	Price   *float64 `json:"price" validate:"required,gte=0"`
	Storage string   `json:"storage" validate:"required"`
	Color   string   `json:"color" validate:"required"`
	Image   string   `json:"image" validate:"required"`
}

// MsgUpdateIphone is the update-iphone payload: an id plus any subset of
// fields to change.
type MsgUpdateIphone struct {
	ID      int64    `json:"id" validate:"required"`
	Name    *string  `json:"name,omitempty"`
	Model   *string  `json:"model,omitempty"`
	Price   *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Storage *string  `json:"storage,omitempty"`
	Color   *string  `json:"color,omitempty"`
	Image   *string  `json:"image,omitempty"`
}

// MsgJoinChat is the join-chat payload.
type MsgJoinChat struct {
	UserName string `json:"userName"`
}

// MsgSendMessage is the send-message payload. The sender field is accepted
// for wire compatibility but ignored: the server uses the display name
// bound to the session at join time.
type MsgSendMessage struct {
	Text   string `json:"text"`
	Sender string `json:"sender,omitempty"`
}

// Message kinds.
const (
	KindUser   = "user"
	KindSystem = "system"
)

// ChatMessage is a single chat room message, user-sent or system-generated.
type ChatMessage struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
}

// UsersOnline is the users-online payload: current presence membership in
// join order, plus its size.
type UsersOnline struct {
	Users []string `json:"users"`
	Count int      `json:"count"`
}
