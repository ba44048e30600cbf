// Package store persists conversations and serves the shop catalog.
package store

import (
	"context"
	"log/slog"

	"github.com/ArtemDzuba/bakery-bot/core/logger"
	"github.com/ArtemDzuba/bakery-bot/internal/bakery"
)

// Catalog is the read-only shop assortment.
type Catalog interface {
	ListCategories(ctx context.Context) ([]bakery.Category, error)
	ListProducts(ctx context.Context, categoryID int64) ([]bakery.Product, error)
	// GetProduct returns bakery.ErrNotFound for unknown ids.
	GetProduct(ctx context.Context, id int64) (bakery.Product, error)
	// FindProduct matches name exactly within one category. Missing or
	// ambiguous names return bakery.ErrNotFound.
	FindProduct(ctx context.Context, name string, categoryID int64) (bakery.Product, error)
}

// Conversations keeps per-user dialogue state.
type Conversations interface {
	// ReadConversation returns a fresh Main conversation for unseen users.
	ReadConversation(ctx context.Context, userID int64) (bakery.Conversation, error)
	WriteConversation(ctx context.Context, conv bakery.Conversation) error
}

// Session is a store handle scoped to one inbound message. Close releases it.
type Session interface {
	Catalog
	Conversations
	Close() error
}

// Store hands out sessions.
type Store interface {
	Acquire(ctx context.Context) (Session, error)
}

// ReadState returns the current state of a user.
func ReadState(ctx context.Context, c Conversations, userID int64) (bakery.State, error) {
	conv, err := c.ReadConversation(ctx, userID)
	if err != nil {
		return nil, err
	}
	return conv.State, nil
}

// WriteState replaces the state of a user and keeps the rest of the conversation.
func WriteState(ctx context.Context, c Conversations, userID int64, s bakery.State) error {
	conv, err := c.ReadConversation(ctx, userID)
	if err != nil {
		return err
	}
	conv.State = s
	return c.WriteConversation(ctx, conv)
}

// decodeState turns a stored row into a State. Rows written by an older or
// broken build fall back to Main so the user gets the menu instead of an error.
func decodeState(ctx context.Context, userID int64, enc bakery.EncodedState) bakery.State {
	s, err := bakery.DecodeState(enc)
	if err != nil {
		logger.Store.LogAttrs(ctx, slog.LevelWarn, "state decode failed",
			slog.String("event", "state.decode"),
			slog.Int64("user_id", userID),
			slog.String("state", enc.Kind),
			slog.String("err", err.Error()),
		)
		return bakery.Main{}
	}
	return s
}
