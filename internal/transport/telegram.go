// Package transport renders storefront replies as Telegram messages.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/ArtemDzuba/bakery-bot/core/logger"
	"github.com/ArtemDzuba/bakery-bot/core/telegram/keyboard"
	"github.com/ArtemDzuba/bakery-bot/core/telegram/middleware"
	"github.com/ArtemDzuba/bakery-bot/internal/bakery"
)

// Bot is the sending half of *tele.Bot.
type Bot interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Telegram sends replies to chats.
type Telegram struct {
	bot    Bot
	photos *PhotoResolver

	mu      sync.Mutex
	fileIDs map[string]string
}

// New builds a Telegram transport. photos may be nil.
func New(bot Bot, photos *PhotoResolver) *Telegram {
	return &Telegram{bot: bot, photos: photos, fileIDs: make(map[string]string)}
}

// Send delivers reply to chatID. A reply with a photo goes out as a captioned
// picture; if the picture cannot be sent the text is sent on its own.
func (t *Telegram) Send(ctx context.Context, chatID int64, reply bakery.Reply) error {
	if t.bot == nil {
		return errors.New("transport: bot is not configured")
	}
	to := tele.ChatID(chatID)
	opts := []interface{}{tele.ModeMarkdown}
	markup := keyboard.ReplyButtons(reply.Keyboard...)
	if markup != nil {
		opts = append(opts, markup)
	}

	if reply.Photo != nil {
		sent, err := t.sendPhoto(ctx, to, *reply.Photo, reply.Text, opts)
		if sent {
			middleware.CountSent(ctx, true, markup != nil)
			return nil
		}
		if err != nil {
			logger.TG.LogAttrs(ctx, slog.LevelWarn, "photo send failed",
				slog.String("event", "send.photo"),
				slog.String("photo", reply.Photo.String()),
				slog.String("err", err.Error()),
			)
		}
	}

	if _, err := t.bot.Send(to, reply.Text, opts...); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	middleware.CountSent(ctx, false, markup != nil)
	return nil
}

func (t *Telegram) sendPhoto(ctx context.Context, to tele.Recipient, ref bakery.PhotoRef, caption string, opts []interface{}) (bool, error) {
	key := ref.String()
	file, ok, err := t.photoFile(ref)
	if err != nil || !ok {
		return false, err
	}
	msg, err := t.bot.Send(to, &tele.Photo{File: file, Caption: caption}, opts...)
	if err != nil {
		t.forget(key)
		return false, err
	}
	if msg != nil && msg.Photo != nil && msg.Photo.FileID != "" {
		t.remember(key, msg.Photo.FileID)
	}
	logger.TG.LogAttrs(ctx, slog.LevelDebug, "photo sent",
		slog.String("event", "send.photo"),
		slog.String("photo", key),
	)
	return true, nil
}

// photoFile prefers the file id Telegram returned for an earlier upload.
func (t *Telegram) photoFile(ref bakery.PhotoRef) (tele.File, bool, error) {
	t.mu.Lock()
	id, cached := t.fileIDs[ref.String()]
	t.mu.Unlock()
	if cached {
		return tele.File{FileID: id}, true, nil
	}
	return t.photos.Resolve(ref)
}

func (t *Telegram) remember(key, fileID string) {
	t.mu.Lock()
	t.fileIDs[key] = fileID
	t.mu.Unlock()
}

func (t *Telegram) forget(key string) {
	t.mu.Lock()
	delete(t.fileIDs, key)
	t.mu.Unlock()
}

// ChatLookup fetches chat details; *tele.Bot satisfies it.
type ChatLookup interface {
	ChatByID(id int64) (*tele.Chat, error)
}

// DisplayName picks how to address the user: first name, then username, then
// the name Telegram reports for the chat, then placeholder.
func DisplayName(u *tele.User, lookup ChatLookup, placeholder string) string {
	if u == nil {
		return placeholder
	}
	if name := strings.TrimSpace(u.FirstName); name != "" {
		return name
	}
	if name := strings.TrimSpace(u.Username); name != "" {
		return name
	}
	if lookup != nil && u.ID != 0 {
		if chat, err := lookup.ChatByID(u.ID); err == nil && chat != nil {
			if name := strings.TrimSpace(chat.FirstName); name != "" {
				return name
			}
			if name := strings.TrimSpace(chat.Username); name != "" {
				return name
			}
		}
	}
	return placeholder
}
