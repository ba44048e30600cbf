// Package notify relays placed orders to the shop administrator.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/ArtemDzuba/bakery-bot/core/logger"
	"github.com/ArtemDzuba/bakery-bot/core/telegram/format"
)

// ErrNoAdmin is returned when no admin chat is configured.
var ErrNoAdmin = errors.New("notify: admin chat is not configured")

// Order is a confirmed purchase as the admin sees it.
type Order struct {
	ID          string
	ProductID   int64
	ProductName string
	UserID      int64
	DisplayName string
	PlacedAt    time.Time
}

// Sender delivers one message; *tele.Bot satisfies it.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Queue runs deliveries in the background with retries; *sender.Dispatcher satisfies it.
type Queue interface {
	Enqueue(ctx context.Context, action, endpoint string, run func() error) error
}

// Admin notifies one admin chat.
type Admin struct {
	chatID int64
	bot    Sender
	queue  Queue
	loc    *time.Location
}

// NewAdmin builds a notifier. queue may be nil, in which case messages are sent inline.
func NewAdmin(chatID int64, bot Sender, queue Queue) *Admin {
	return &Admin{chatID: chatID, bot: bot, queue: queue, loc: time.Local}
}

// WithLocation sets the zone order times are shown in.
func (a *Admin) WithLocation(loc *time.Location) *Admin {
	if loc != nil {
		a.loc = loc
	}
	return a
}

// Notify hands the order summary to the delivery queue. When the queue
// rejects it the message is sent directly instead.
func (a *Admin) Notify(ctx context.Context, order Order) error {
	if a.chatID == 0 {
		logger.Orders.LogAttrs(ctx, slog.LevelWarn, "admin not configured",
			slog.String("event", "order.notify"),
			slog.String("order_id", order.ID),
			slog.String("outcome", "skipped"),
		)
		return nil
	}
	text := a.Summary(order)
	send := func() error { return a.send(text) }

	if a.queue != nil {
		err := a.queue.Enqueue(ctx, "notify_admin", "sendMessage", send)
		if err == nil {
			logger.Orders.LogAttrs(ctx, slog.LevelInfo, "order queued",
				slog.String("event", "order.notify"),
				slog.String("order_id", order.ID),
				slog.Int64("product_id", order.ProductID),
				slog.String("outcome", "queued"),
			)
			return nil
		}
		logger.Orders.LogAttrs(ctx, slog.LevelWarn, "queue rejected notification",
			slog.String("event", "order.notify"),
			slog.String("order_id", order.ID),
			slog.String("err", err.Error()),
		)
	}

	if err := send(); err != nil {
		return fmt.Errorf("notify admin: %w", err)
	}
	logger.Orders.LogAttrs(ctx, slog.LevelInfo, "order sent",
		slog.String("event", "order.notify"),
		slog.String("order_id", order.ID),
		slog.Int64("product_id", order.ProductID),
		slog.String("outcome", "sent"),
	)
	return nil
}

// SendTest tells the admin the bot is up. Telegram refuses it until the admin
// has written to the bot at least once.
func (a *Admin) SendTest(ctx context.Context) error {
	if a.chatID == 0 {
		return ErrNoAdmin
	}
	if err := a.send("🧪 *АДМИН-ТЕСТ:* Бот готов принимать заказы!"); err != nil {
		return fmt.Errorf("admin test message: %w", err)
	}
	logger.Orders.LogAttrs(ctx, slog.LevelInfo, "admin test message sent", slog.String("event", "admin.test"))
	return nil
}

// Summary renders the admin message for order.
func (a *Admin) Summary(order Order) string {
	name := strings.TrimSpace(order.DisplayName)
	if name == "" {
		name = "Друг"
	}
	placed := order.PlacedAt
	if placed.IsZero() {
		placed = time.Now()
	}
	var b strings.Builder
	b.WriteString("🔔 *НОВЫЙ ЗАКАЗ!*\n\n")
	fmt.Fprintf(&b, "🍰 *Товар:* %s\n", format.Escape(order.ProductName))
	fmt.Fprintf(&b, "👤 *Клиент:* %s (ID: %d)\n", format.Escape(name), order.UserID)
	fmt.Fprintf(&b, "⏰ *Время:* %s\n", placed.In(a.loc).Format("02.01.2006 15:04:05 MST"))
	fmt.Fprintf(&b, "📞 *Диалог:* [открыть](tg://user?id=%d)\n", order.UserID)
	if order.ID != "" {
		fmt.Fprintf(&b, "🧾 *Заказ:* %s\n", format.Escape(order.ID))
	}
	b.WriteString("\n❗ *Обработать срочно!*")
	return b.String()
}

func (a *Admin) send(text string) error {
	if a.bot == nil {
		return errors.New("notify: no sender")
	}
	_, err := a.bot.Send(tele.ChatID(a.chatID), text, tele.ModeMarkdown)
	return err
}
