package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ArtemDzuba/bakery-bot/internal/bakery"
)

const (
	queryCategories = `SELECT id, name, emoji, position FROM categories ORDER BY position, id`

	productColumns = `id, category_id, name, description, price, photo_owner_id, photo_id, position`

	queryProducts    = `SELECT ` + productColumns + ` FROM products WHERE category_id = ? ORDER BY position, id`
	queryProduct     = `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	queryFindProduct = `SELECT ` + productColumns + ` FROM products WHERE name = ? AND category_id = ? LIMIT 2`

	queryConversation = `SELECT user_id, state, category_id, product_id, last_product, updated_at
FROM user_states WHERE user_id = ?`

	upsertConversation = `INSERT INTO user_states (user_id, state, category_id, product_id, last_product, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    state = excluded.state,
    category_id = excluded.category_id,
    product_id = excluded.product_id,
    last_product = excluded.last_product,
    updated_at = excluded.updated_at`
)

type categoryRow struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Emoji    string `db:"emoji"`
	Position int    `db:"position"`
}

type productRow struct {
	ID           int64  `db:"id"`
	CategoryID   int64  `db:"category_id"`
	Name         string `db:"name"`
	Description  string `db:"description"`
	Price        int    `db:"price"`
	PhotoOwnerID int64  `db:"photo_owner_id"`
	PhotoID      int64  `db:"photo_id"`
	Position     int    `db:"position"`
}

func (r productRow) product() bakery.Product {
	return bakery.Product{
		ID:          r.ID,
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Photo:       bakery.PhotoRef{OwnerID: r.PhotoOwnerID, MediaID: r.PhotoID},
		Position:    r.Position,
	}
}

type conversationRow struct {
	UserID      int64  `db:"user_id"`
	State       string `db:"state"`
	CategoryID  *int64 `db:"category_id"`
	ProductID   *int64 `db:"product_id"`
	LastProduct *int64 `db:"last_product"`
	UpdatedAt   dbTime `db:"updated_at"`
}

// dbTime scans timestamps from drivers that return either time.Time or text.
type dbTime struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

func (t *dbTime) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("store: cannot scan %T into time", src)
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("store: unrecognised time %q", s)
}

// Option customises a SQLStore.
type Option func(*SQLStore)

// WithConversations serves conversation state from c instead of the user_states table.
func WithConversations(c Conversations) Option {
	return func(s *SQLStore) { s.conversations = c }
}

// WithClock overrides the time source used for updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *SQLStore) {
		if now != nil {
			s.now = now
		}
	}
}

// SQLStore serves the catalog and conversations from PostgreSQL or SQLite.
type SQLStore struct {
	db            *sqlx.DB
	conversations Conversations
	now           func() time.Time
}

// NewSQL wraps an open database.
func NewSQL(db *sqlx.DB, opts ...Option) *SQLStore {
	s := &SQLStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire takes one pooled connection for the duration of a message.
func (s *SQLStore) Acquire(ctx context.Context) (Session, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store: database not configured")
	}
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &sqlSession{conn: conn, conversations: s.conversations, now: s.now}, nil
}

type sqlSession struct {
	conn          *sqlx.Conn
	conversations Conversations
	now           func() time.Time
}

func (s *sqlSession) Close() error {
	return s.conn.Close()
}

func (s *sqlSession) ListCategories(ctx context.Context) ([]bakery.Category, error) {
	var rows []categoryRow
	if err := s.conn.SelectContext(ctx, &rows, s.conn.Rebind(queryCategories)); err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	out := make([]bakery.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, bakery.Category{ID: r.ID, Name: r.Name, Emoji: r.Emoji, Position: r.Position})
	}
	return out, nil
}

func (s *sqlSession) ListProducts(ctx context.Context, categoryID int64) ([]bakery.Product, error) {
	var rows []productRow
	if err := s.conn.SelectContext(ctx, &rows, s.conn.Rebind(queryProducts), categoryID); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	out := make([]bakery.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.product())
	}
	return out, nil
}

func (s *sqlSession) GetProduct(ctx context.Context, id int64) (bakery.Product, error) {
	var row productRow
	err := s.conn.GetContext(ctx, &row, s.conn.Rebind(queryProduct), id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return bakery.Product{}, bakery.ErrNotFound
	case err != nil:
		return bakery.Product{}, fmt.Errorf("select product: %w", err)
	}
	return row.product(), nil
}

func (s *sqlSession) FindProduct(ctx context.Context, name string, categoryID int64) (bakery.Product, error) {
	var rows []productRow
	if err := s.conn.SelectContext(ctx, &rows, s.conn.Rebind(queryFindProduct), name, categoryID); err != nil {
		return bakery.Product{}, fmt.Errorf("find product: %w", err)
	}
	if len(rows) != 1 {
		return bakery.Product{}, bakery.ErrNotFound
	}
	return rows[0].product(), nil
}

func (s *sqlSession) ReadConversation(ctx context.Context, userID int64) (bakery.Conversation, error) {
	if s.conversations != nil {
		return s.conversations.ReadConversation(ctx, userID)
	}
	var row conversationRow
	err := s.conn.GetContext(ctx, &row, s.conn.Rebind(queryConversation), userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return bakery.NewConversation(userID), nil
	case err != nil:
		return bakery.Conversation{}, fmt.Errorf("select conversation: %w", err)
	}
	enc := bakery.EncodedState{Kind: row.State, CategoryID: row.CategoryID, ProductID: row.ProductID}
	return bakery.Conversation{
		UserID:        row.UserID,
		State:         decodeState(ctx, userID, enc),
		LastProductID: row.LastProduct,
		UpdatedAt:     row.UpdatedAt.Time,
	}, nil
}

func (s *sqlSession) WriteConversation(ctx context.Context, conv bakery.Conversation) error {
	if s.conversations != nil {
		return s.conversations.WriteConversation(ctx, conv)
	}
	enc := bakery.EncodeState(conv.State)
	updated := s.now()
	_, err := s.conn.ExecContext(ctx, s.conn.Rebind(upsertConversation),
		conv.UserID, enc.Kind, enc.CategoryID, enc.ProductID, conv.LastProductID, updated.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}
