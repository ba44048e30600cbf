package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/ArtemDzuba/bakery-bot/core/config"
	coredatabase "github.com/ArtemDzuba/bakery-bot/core/database"
	coretelegram "github.com/ArtemDzuba/bakery-bot/core/telegram"
	"github.com/ArtemDzuba/bakery-bot/internal/bakery"
	"github.com/ArtemDzuba/bakery-bot/internal/chat"
	"github.com/ArtemDzuba/bakery-bot/internal/store"
)

func noLogger(*coreconfig.Config) error { return nil }

func memoryConfig() *Config {
	cfg := &Config{}
	cfg.Telegram.Token = "1:t"
	cfg.Database.Driver = coredatabase.DriverMemory
	cfg.State.Backend = StateBackendSQL
	cfg.Shop.PlaceholderName = "Друг"
	return cfg
}

func sqliteConfig(t *testing.T) *Config {
	cfg := memoryConfig()
	cfg.Database = coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: filepath.Join(t.TempDir(), "bakery.db")}
	require.NoError(t, cfg.Database.Normalize())
	return cfg
}

func boot(t *testing.T, cfg *Config, opts BootOptions) *App {
	t.Helper()
	if opts.LoggerInit == nil {
		opts.LoggerInit = noLogger
	}
	a, err := Bootstrap(context.Background(), cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestBootstrapMemory(t *testing.T) {
	a := boot(t, memoryConfig(), BootOptions{})
	assert.IsType(t, &store.MemoryStore{}, a.Store())
}

func TestBootstrapSQLiteSeedsCatalog(t *testing.T) {
	a := boot(t, sqliteConfig(t), BootOptions{})
	require.IsType(t, &store.SQLStore{}, a.Store())

	sess, err := a.Store().Acquire(context.Background())
	require.NoError(t, err)
	defer sess.Close()
	cats, err := sess.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, 3)
}

func TestBootstrapRejectsBadCatalog(t *testing.T) {
	cfg := memoryConfig()
	cfg.Shop.CatalogFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := Bootstrap(context.Background(), cfg, BootOptions{LoggerInit: noLogger})
	require.Error(t, err)
}

type recordingConversations struct {
	mu     sync.Mutex
	writes []bakery.Conversation
}

func (r *recordingConversations) ReadConversation(_ context.Context, userID int64) (bakery.Conversation, error) {
	return bakery.NewConversation(userID), nil
}

func (r *recordingConversations) WriteConversation(_ context.Context, conv bakery.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, conv)
	return nil
}

func TestBootstrapDynamoBackendOverridesConversations(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.State = StateConfig{Backend: StateBackendDynamoDB, DynamoDBTable: "conversations"}
	conv := &recordingConversations{}
	a := boot(t, cfg, BootOptions{
		Conversations: func(context.Context, *Config) (store.Conversations, error) { return conv, nil },
	})

	sess, err := a.Store().Acquire(context.Background())
	require.NoError(t, err)
	defer sess.Close()
	require.NoError(t, sess.WriteConversation(context.Background(), bakery.Conversation{UserID: 5, State: bakery.Main{}}))
	require.Len(t, conv.writes, 1)
	assert.EqualValues(t, 5, conv.writes[0].UserID)
}

func TestWireRegistersStartAndText(t *testing.T) {
	a := boot(t, memoryConfig(), BootOptions{})
	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	require.NotNil(t, opts.Wire)
	require.NotNil(t, opts.Registry)
	assert.NotEmpty(t, opts.Middlewares)

	routes, err := opts.Wire(coretelegram.Runtime{Registry: opts.Registry})
	require.NoError(t, err)

	endpoints := make(map[any]bool)
	for _, r := range routes {
		endpoints[r.Endpoint] = true
	}
	assert.True(t, endpoints["/start"])
	assert.True(t, endpoints[tele.OnText])
	assert.NotNil(t, opts.Registry.TextFallback())
	_, cmd, ok := opts.Registry.LookupCommand("/start")
	require.True(t, ok)
	assert.NotEmpty(t, cmd.Description)
}

func TestWireNeedsRegistry(t *testing.T) {
	a := boot(t, memoryConfig(), BootOptions{})
	_, err := a.Wire(coretelegram.Runtime{})
	require.Error(t, err)
}

type fakeTransport struct {
	mu      sync.Mutex
	chats   []int64
	replies []bakery.Reply
}

func (f *fakeTransport) Send(_ context.Context, chatID int64, reply bakery.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, chatID)
	f.replies = append(f.replies, reply)
	return nil
}

func messageContext(t *testing.T, chatType tele.ChatType, user *tele.User, text string) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return bot.NewContext(tele.Update{
		ID: 3,
		Message: &tele.Message{
			Text:   text,
			Sender: user,
			Chat:   &tele.Chat{ID: user.ID, Type: chatType},
		},
	})
}

func TestMessageHandlerGreetsPrivateChats(t *testing.T) {
	a := boot(t, memoryConfig(), BootOptions{})
	tr := &fakeTransport{}
	svc, err := chat.New(chat.Options{Store: a.Store(), Engine: a.engine, Transport: tr})
	require.NoError(t, err)
	handle := a.messageHandler(svc, nil)

	require.NoError(t, handle(messageContext(t, tele.ChatPrivate, &tele.User{ID: 21}, "привет")))
	require.Len(t, tr.replies, 1)
	assert.Equal(t, []int64{21}, tr.chats)
	assert.Contains(t, tr.replies[0].Text, "Друг")

	require.NoError(t, handle(messageContext(t, tele.ChatGroup, &tele.User{ID: 22, FirstName: "Оля"}, "привет")))
	assert.Len(t, tr.replies, 1)
}

func TestOnStartSkipsWithoutAdmin(t *testing.T) {
	a := boot(t, memoryConfig(), BootOptions{})
	assert.NoError(t, a.onStart(context.Background(), coretelegram.Runtime{}))
}

func TestMigrateSQLite(t *testing.T) {
	baseEnv(t)
	dbPath := filepath.Join(t.TempDir(), "bakery.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", dbPath)

	require.NoError(t, Migrate(context.Background(), missingPath(t)))
	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}
