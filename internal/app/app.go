package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/ArtemDzuba/bakery-bot/core/bootstrap"
	coreconfig "github.com/ArtemDzuba/bakery-bot/core/config"
	coredatabase "github.com/ArtemDzuba/bakery-bot/core/database"
	"github.com/ArtemDzuba/bakery-bot/core/logger"
	coretelegram "github.com/ArtemDzuba/bakery-bot/core/telegram"
	tghelpers "github.com/ArtemDzuba/bakery-bot/core/telegram/helpers"
	"github.com/ArtemDzuba/bakery-bot/core/telegram/router"
	tgsender "github.com/ArtemDzuba/bakery-bot/core/telegram/sender"
	"github.com/ArtemDzuba/bakery-bot/internal/chat"
	"github.com/ArtemDzuba/bakery-bot/internal/engine"
	"github.com/ArtemDzuba/bakery-bot/internal/notify"
	"github.com/ArtemDzuba/bakery-bot/internal/secrets"
	"github.com/ArtemDzuba/bakery-bot/internal/seed"
	"github.com/ArtemDzuba/bakery-bot/internal/store"
	"github.com/ArtemDzuba/bakery-bot/internal/transport"
	"github.com/ArtemDzuba/bakery-bot/migrations"
)

// App owns the infrastructure shared by every update.
type App struct {
	cfg    *Config
	boot   *bootstrap.Result
	store  store.Store
	engine *engine.Engine
	photos *transport.PhotoResolver
}

// BootOptions replace infrastructure constructors in tests.
type BootOptions struct {
	LoggerInit func(*coreconfig.Config) error
	// Conversations builds the DynamoDB conversation store; nil uses the AWS SDK.
	Conversations func(ctx context.Context, cfg *Config) (store.Conversations, error)
}

// Bootstrap connects storage, applies migrations, seeds the catalog and
// prepares the storefront.
func Bootstrap(ctx context.Context, cfg *Config, opts BootOptions) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	catalog, err := seed.Load(cfg.Shop.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("app: catalog: %w", err)
	}

	boot, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     &cfg.Config,
		Database:   cfg.Database,
		LoggerInit: opts.LoggerInit,
		Migrate:    migrate,
		Seeders: []bootstrap.Seeder{bootstrap.SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
			return store.Seed(ctx, db, catalog)
		})},
	})
	if err != nil {
		return nil, err
	}

	st, err := buildStore(ctx, cfg, boot, catalog, opts)
	if err != nil {
		_ = boot.Close()
		return nil, err
	}

	eng := engine.New(engine.Options{
		AdminID:      cfg.Telegram.AdminID,
		DisplayLimit: cfg.Shop.DisplayLimit,
	})
	return &App{
		cfg:    cfg,
		boot:   boot,
		store:  st,
		engine: eng,
		photos: transport.NewPhotoResolver(cfg.Photos),
	}, nil
}

func migrate(c coredatabase.Config) error {
	return coredatabase.RunMigrations(c, migrations.FS)
}

func buildStore(ctx context.Context, cfg *Config, boot *bootstrap.Result, catalog seed.Catalog, opts BootOptions) (store.Store, error) {
	if boot.DB == nil {
		logger.Store.Info("conversations kept in memory",
			slog.String("event", "store.init"),
			slog.String("backend", "memory"),
		)
		return store.NewMemory(catalog), nil
	}

	var sqlOpts []store.Option
	if cfg.State.Backend == StateBackendDynamoDB {
		build := opts.Conversations
		if build == nil {
			build = newDynamoConversations
		}
		conv, err := build(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("app: dynamodb state: %w", err)
		}
		sqlOpts = append(sqlOpts, store.WithConversations(conv))
	}
	logger.Store.Info("store ready",
		slog.String("event", "store.init"),
		slog.String("backend", cfg.State.Backend),
		slog.String("driver", cfg.Database.Driver),
	)
	return store.NewSQL(boot.DB, sqlOpts...), nil
}

func loadAWS(ctx context.Context, c AWSConfig) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if region := strings.TrimSpace(c.Region); region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}
	return awsconfig.LoadDefaultConfig(ctx, optFns...)
}

func newDynamoConversations(ctx context.Context, cfg *Config) (store.Conversations, error) {
	awsCfg, err := loadAWS(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint := strings.TrimSpace(cfg.AWS.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return store.NewDynamo(client, cfg.State.DynamoDBTable)
}

func newParamStore(ctx context.Context, c AWSConfig) (secrets.Getter, error) {
	awsCfg, err := loadAWS(ctx, c)
	if err != nil {
		return nil, err
	}
	return secrets.NewParamStore(ssm.NewFromConfig(awsCfg))
}

// Store exposes the storefront store.
func (a *App) Store() store.Store { return a.store }

// Close releases the database.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	return a.boot.Close()
}

// TelegramRunOptions wires the storefront into the bot runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	cfg := a.cfg
	return coretelegram.RunOptions{
		Config:   &cfg.Config,
		Registry: coretelegram.NewRegistry(),
		DispatcherOptions: tgsender.Options{
			QueueSize:    cfg.Sender.QueueSize,
			Workers:      cfg.Sender.Workers,
			MaxRetries:   cfg.Sender.MaxRetries,
			RetryBackoff: time.Duration(cfg.Sender.BackoffMS) * time.Millisecond,
		},
		Middlewares: coretelegram.DefaultMiddlewares(&cfg.Config, nil),
		Wire:        a.Wire,
		OnStart:     a.onStart,
	}, nil
}

// Wire registers the storefront handlers on the live bot.
func (a *App) Wire(rt coretelegram.Runtime) ([]coretelegram.Route, error) {
	if rt.Registry == nil {
		return nil, errors.New("app: runtime has no registry")
	}
	var (
		bot    transport.Bot
		lookup transport.ChatLookup
	)
	if rt.Bot != nil {
		bot, lookup = rt.Bot, rt.Bot
	}
	svc, err := chat.New(chat.Options{
		Store:     a.store,
		Engine:    a.engine,
		Transport: transport.New(bot, a.photos),
		Notifier:  a.admin(rt),
	})
	if err != nil {
		return nil, err
	}

	handle := a.messageHandler(svc, lookup)

	rt.Registry.RegisterCommand("/start", coretelegram.Command{
		Handler:     handle,
		Description: "Главное меню",
	})
	rt.Registry.SetTextFallback(handle)

	routes := router.CommandRoutes(rt.Registry)
	routes = append(routes, router.TextRoutes(rt.Registry, router.TextOptions{})...)
	logger.TWire.Debug("storefront wired",
		slog.String("event", "wire"),
		slog.Int("routes", len(routes)),
	)
	return routes, nil
}

func (a *App) admin(rt coretelegram.Runtime) *notify.Admin {
	var bot notify.Sender
	if rt.Bot != nil {
		bot = rt.Bot
	}
	var queue notify.Queue
	if rt.Dispatcher != nil {
		queue = rt.Dispatcher
	}
	return notify.NewAdmin(a.cfg.Telegram.AdminID, bot, queue).WithLocation(a.cfg.Location())
}

// messageHandler feeds private text messages to the chat service.
func (a *App) messageHandler(svc *chat.Service, lookup transport.ChatLookup) tele.HandlerFunc {
	return func(c tele.Context) error {
		ch := c.Chat()
		user := c.Sender()
		if ch == nil || user == nil || ch.Type != tele.ChatPrivate {
			return nil
		}
		return svc.HandleMessage(tghelpers.BuildContext(c), chat.Inbound{
			UserID:      user.ID,
			ChatID:      ch.ID,
			Text:        c.Text(),
			DisplayName: transport.DisplayName(user, lookup, a.cfg.Shop.PlaceholderName),
		})
	}
}

// onStart sends the admin test message. Failures never stop the bot.
func (a *App) onStart(ctx context.Context, rt coretelegram.Runtime) error {
	if a.cfg.Shop.SkipAdminTest || a.cfg.Telegram.AdminID == 0 {
		return nil
	}
	if err := a.admin(rt).SendTest(ctx); err != nil {
		logger.Orders.LogAttrs(ctx, slog.LevelWarn, "admin test message failed",
			slog.String("event", "admin.test"),
			slog.String("err", tgsender.RedactToken(err.Error())),
		)
	}
	return nil
}

// Migrate applies migrations for the configuration at path and exits.
func Migrate(_ context.Context, path string) error {
	cfg, err := LoadOffline(path)
	if err != nil {
		return err
	}
	if err := logger.InitLogger(&cfg.Config); err != nil {
		return err
	}
	if cfg.Database.Driver == coredatabase.DriverMemory {
		logger.MIG.Info("memory driver has no schema", slog.String("event", "migrate.skip"))
		return nil
	}
	return migrate(cfg.Database)
}
