// Package chat handles one inbound message end to end: it loads the user's
// conversation, asks the engine what to answer, saves the next state, sends
// the replies and passes confirmed orders on to the admin.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ArtemDzuba/bakery-bot/core/logger"
	"github.com/ArtemDzuba/bakery-bot/internal/bakery"
	"github.com/ArtemDzuba/bakery-bot/internal/engine"
	"github.com/ArtemDzuba/bakery-bot/internal/notify"
	"github.com/ArtemDzuba/bakery-bot/internal/store"
)

// Inbound is one text message from a user.
type Inbound struct {
	UserID      int64
	ChatID      int64
	Text        string
	DisplayName string
}

// Transport sends replies.
type Transport interface {
	Send(ctx context.Context, chatID int64, reply bakery.Reply) error
}

// Notifier relays orders to the admin.
type Notifier interface {
	Notify(ctx context.Context, order notify.Order) error
}

// Options wires a Service.
type Options struct {
	Store     store.Store
	Engine    *engine.Engine
	Transport Transport
	// Notifier may be nil; orders are then only logged.
	Notifier  Notifier
	Now       func() time.Time
	NewID     func() string
}

// Service processes messages one at a time.
type Service struct {
	store     store.Store
	engine    *engine.Engine
	transport Transport
	notifier  Notifier
	now       func() time.Time
	newID     func() string
}

// New validates opts and builds a Service.
func New(opts Options) (*Service, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("chat: store is required")
	case opts.Transport == nil:
		return nil, errors.New("chat: transport is required")
	}
	s := &Service{
		store:     opts.Store,
		engine:    opts.Engine,
		transport: opts.Transport,
		notifier:  opts.Notifier,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if s.engine == nil {
		s.engine = engine.New(engine.Options{})
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}

// HandleMessage runs one message through the storefront. A store failure
// aborts the message before anything is sent. Send failures are reported as
// ErrDelivery after every reply has been attempted. Notification failures are
// logged and never returned.
func (s *Service) HandleMessage(ctx context.Context, in Inbound) error {
	in.Text = strings.TrimSpace(in.Text)
	if in.ChatID == 0 {
		in.ChatID = in.UserID
	}

	sess, err := s.store.Acquire(ctx)
	if err != nil {
		return storeErr("acquire", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Store.LogAttrs(ctx, slog.LevelWarn, "session close failed",
				slog.String("event", "session.close"),
				slog.String("err", cerr.Error()),
			)
		}
	}()

	conv, err := sess.ReadConversation(ctx, in.UserID)
	if err != nil {
		return storeErr("read conversation", err)
	}
	if conv.State == nil {
		conv.State = bakery.Main{}
	}

	out, err := s.engine.Step(ctx, sess, conv.State, engine.Input{Text: in.Text, DisplayName: in.DisplayName})
	if err != nil {
		return storeErr("step", err)
	}

	next := bakery.Conversation{UserID: in.UserID, State: out.Next, LastProductID: conv.LastProductID}
	if out.ViewedProduct != nil {
		next.LastProductID = out.ViewedProduct
	}
	if err := sess.WriteConversation(ctx, next); err != nil {
		return storeErr("write conversation", err)
	}

	logger.Chat.LogAttrs(ctx, slog.LevelDebug, "transition",
		slog.String("event", "chat.step"),
		slog.String("state", conv.State.Kind()),
		slog.String("next_state", out.Next.Kind()),
		slog.Int("replies", len(out.Replies)),
	)

	var sendErrs []error
	for i, reply := range out.Replies {
		if err := s.transport.Send(ctx, in.ChatID, reply); err != nil {
			logger.Chat.LogAttrs(ctx, slog.LevelWarn, "reply not delivered",
				slog.String("event", "chat.send"),
				slog.Int("reply", i),
				slog.String("err", err.Error()),
			)
			sendErrs = append(sendErrs, err)
		}
	}

	if out.Order != nil {
		s.placeOrder(ctx, in, *out.Order)
	}

	if len(sendErrs) > 0 {
		return &Error{Kind: ErrDelivery, Op: "send", Err: errors.Join(sendErrs...)}
	}
	return nil
}

func (s *Service) placeOrder(ctx context.Context, in Inbound, req engine.OrderRequest) {
	order := notify.Order{
		ID:          s.newID(),
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		UserID:      in.UserID,
		DisplayName: in.DisplayName,
		PlacedAt:    s.now(),
	}
	logger.Orders.LogAttrs(ctx, slog.LevelInfo, "order placed",
		slog.String("event", "order.placed"),
		slog.String("order_id", order.ID),
		slog.Int64("product_id", order.ProductID),
		slog.String("product", logger.SanitizeLimit(order.ProductName, 64)),
	)
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, order); err != nil {
		logger.Orders.LogAttrs(ctx, slog.LevelError, "admin notification failed",
			slog.String("event", "order.notify"),
			slog.String("order_id", order.ID),
			slog.String("err", err.Error()),
		)
	}
}
