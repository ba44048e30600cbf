// Package bakery holds the storefront domain types shared by the conversation
// engine, the stores and the transport.
package bakery

import (
	"errors"
	"fmt"
	"time"
)

// Category groups products on the main menu.
type Category struct {
	ID       int64
	Name     string
	Emoji    string
	Position int
}

// Selector is the keyboard text that opens the category, e.g. "🥧 Пироги".
func (c Category) Selector() string {
	if c.Emoji == "" {
		return c.Name
	}
	return c.Emoji + " " + c.Name
}

// Product is a catalog item. Price is in whole roubles.
type Product struct {
	ID          int64
	CategoryID  int64
	Name        string
	Description string
	Price       int
	Photo       PhotoRef
	Position    int
}

// PhotoRef points at a product photo by owner and media id. The zero value means no photo.
type PhotoRef struct {
	OwnerID int64
	MediaID int64
}

// Valid reports whether both parts of the reference are present.
func (p PhotoRef) Valid() bool {
	return p.OwnerID != 0 && p.MediaID != 0
}

// String renders the reference as photo<owner>_<media>.
func (p PhotoRef) String() string {
	if !p.Valid() {
		return ""
	}
	return fmt.Sprintf("photo%d_%d", p.OwnerID, p.MediaID)
}

// Conversation is the persisted per-user dialogue position.
type Conversation struct {
	UserID int64
	State  State
	// LastProductID is the last product whose details the user opened.
	LastProductID *int64
	UpdatedAt     time.Time
}

// NewConversation returns the conversation of a user that has not written yet.
func NewConversation(userID int64) Conversation {
	return Conversation{UserID: userID, State: Main{}}
}

// Reply is one outbound message: text, an optional reply keyboard and an optional photo.
type Reply struct {
	Text     string
	Keyboard [][]string
	Photo    *PhotoRef
}

// ErrNotFound is returned by catalog lookups that match nothing.
var ErrNotFound = errors.New("bakery: not found")
