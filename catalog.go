package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/lojafone/vitrine/store"
)

// User-facing error strings for catalog operations.
const (
	errFetchIphones  = "Failed to fetch iPhones"
	errCreateIphone  = "Failed to create iPhone"
	errUpdateIphone  = "Failed to update iPhone"
	errDeleteIphone  = "Failed to delete iPhone"
	errIphoneMissing = "iPhone not found"
	errIphoneInvalid = "Invalid iPhone data"
)

// Catalog is the authoritative mutation engine for the item catalog.
// Mutations are serialized: one store write and its broadcasts complete
// before the next mutation starts, so every session observes the delta
// event and the full-catalog resync in the same order. The engine never
// caches catalog state; every resync re-reads the store.
type Catalog struct {
	mu       sync.Mutex
	db       store.Store
	out      Dispatcher
	validate *validator.Validate
	log      zerolog.Logger
}

// NewCatalog creates a catalog engine backed by db, fanning out through out.
func NewCatalog(db store.Store, out Dispatcher, log zerolog.Logger) *Catalog {
	return &Catalog{
		db:       db,
		out:      out,
		validate: validator.New(),
		log:      log.With().Str("component", "catalog").Logger(),
	}
}

// HandleList replies to the requesting session with the full catalog
// ordered by ascending id. No side effects, no broadcast.
func (c *Catalog) HandleList(sid string) {
	items, err := c.db.ListAll(context.Background())
	if err != nil {
		c.log.Error().Err(err).Msg("list failed")
		c.out.SendTo(sid, EvError, errFetchIphones)
		return
	}
	c.out.SendTo(sid, EvAllIphones, items)
}

// HandleCreate validates and persists a new item, then notifies all
// sessions: the created item first, the full resynced catalog second.
// Failures are reported to the requester only.
func (c *Catalog) HandleCreate(sid string, data json.RawMessage) {
	var msg MsgCreateIphone
	if err := json.Unmarshal(data, &msg); err != nil {
		c.out.SendTo(sid, EvError, errIphoneInvalid)
		return
	}
	if err := c.validate.Struct(&msg); err != nil {
		c.out.SendTo(sid, EvError, errIphoneInvalid)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	item, err := c.db.Create(context.Background(), store.IphoneFields{
		Name:    msg.Name,
		Model:   msg.Model,
		Price:   *msg.Price,
		Storage: msg.Storage,
		Color:   msg.Color,
		Image:   msg.Image,
	})
	if err != nil {
		c.log.Error().Err(err).Msg("create failed")
		c.out.SendTo(sid, EvError, errCreateIphone)
		return
	}

	c.log.Info().Int64("id", item.ID).Str("name", item.Name).Msg("iphone created")
	c.out.Broadcast(EvIphoneCreated, item)
	c.resync(sid)
}

// HandleUpdate applies a partial update to an existing item, then notifies
// all sessions: the refreshed record first, the full resynced catalog
// second. A nonexistent id is reported to the requester only.
func (c *Catalog) HandleUpdate(sid string, data json.RawMessage) {
	var msg MsgUpdateIphone
	if err := json.Unmarshal(data, &msg); err != nil {
		c.out.SendTo(sid, EvError, errIphoneInvalid)
		return
	}
	if err := c.validate.Struct(&msg); err != nil {
		c.out.SendTo(sid, EvError, errIphoneInvalid)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ctx := context.Background()
	if _, err := c.db.FindByID(ctx, msg.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.out.SendTo(sid, EvError, errIphoneMissing)
		} else {
			c.log.Error().Err(err).Int64("id", msg.ID).Msg("update lookup failed")
			c.out.SendTo(sid, EvError, errUpdateIphone)
		}
		return
	}

	item, err := c.db.Update(ctx, msg.ID, store.IphoneUpdate{
		Name:    msg.Name,
		Model:   msg.Model,
		Price:   msg.Price,
		Storage: msg.Storage,
		Color:   msg.Color,
		Image:   msg.Image,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.out.SendTo(sid, EvError, errIphoneMissing)
		} else {
			c.log.Error().Err(err).Int64("id", msg.ID).Msg("update failed")
			c.out.SendTo(sid, EvError, errUpdateIphone)
		}
		return
	}

	c.log.Info().Int64("id", item.ID).Msg("iphone updated")
	c.out.Broadcast(EvIphoneUpdated, item)
	c.resync(sid)
}

// HandleDelete removes an existing item, then notifies all sessions: the
// deleted id first, the full resynced catalog second. A nonexistent id is
// reported to the requester only.
func (c *Catalog) HandleDelete(sid string, data json.RawMessage) {
	var id int64
	if err := json.Unmarshal(data, &id); err != nil || id <= 0 {
		c.out.SendTo(sid, EvError, errIphoneInvalid)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ctx := context.Background()
	if err := c.db.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.out.SendTo(sid, EvError, errIphoneMissing)
		} else {
			c.log.Error().Err(err).Int64("id", id).Msg("delete failed")
			c.out.SendTo(sid, EvError, errDeleteIphone)
		}
		return
	}

	c.log.Info().Int64("id", id).Msg("iphone deleted")
	c.out.Broadcast(EvIphoneDeleted, id)
	c.resync(sid)
}

// resync re-reads the store and broadcasts the full catalog. If the
// re-read fails the delta event has already gone out; the requester is
// told and clients self-heal on the next successful resync.
func (c *Catalog) resync(sid string) {
	items, err := c.db.ListAll(context.Background())
	if err != nil {
		c.log.Error().Err(err).Msg("resync failed")
		c.out.SendTo(sid, EvError, errFetchIphones)
		return
	}
	c.out.Broadcast(EvAllIphones, items)
}
