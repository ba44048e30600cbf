// Package app assembles the bakery bot from the core runtime and the
// storefront packages.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	coreconfig "github.com/ArtemDzuba/bakery-bot/core/config"
	coredatabase "github.com/ArtemDzuba/bakery-bot/core/database"
	"github.com/ArtemDzuba/bakery-bot/internal/secrets"
	"github.com/ArtemDzuba/bakery-bot/internal/transport"
)

// State backends.
const (
	StateBackendSQL      = "sql"
	StateBackendDynamoDB = "dynamodb"
)

// StateConfig selects where conversations are kept.
type StateConfig struct {
	Backend       string `yaml:"backend" envconfig:"STATE_BACKEND"`
	DynamoDBTable string `yaml:"dynamodb_table" envconfig:"STATE_DYNAMODB_TABLE"`
}

// ShopConfig holds storefront settings.
type ShopConfig struct {
	// CatalogFile replaces the built-in catalog used for seeding.
	CatalogFile  string `yaml:"catalog_file" envconfig:"SHOP_CATALOG_FILE"`
	DisplayLimit int    `yaml:"display_limit" envconfig:"SHOP_DISPLAY_LIMIT"`
	// PlaceholderName addresses users whose name cannot be resolved.
	PlaceholderName string `yaml:"placeholder_name" envconfig:"SHOP_PLACEHOLDER_NAME"`
	Timezone        string `yaml:"timezone" envconfig:"SHOP_TIMEZONE"`
	SkipAdminTest   bool   `yaml:"skip_admin_test" envconfig:"SHOP_SKIP_ADMIN_TEST"`
}

// AWSConfig configures the AWS SDK for SSM and DynamoDB.
type AWSConfig struct {
	Region string `yaml:"region" envconfig:"AWS_REGION"`
	// Endpoint points DynamoDB at a local emulator.
	Endpoint string `yaml:"endpoint" envconfig:"AWS_ENDPOINT_URL"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config    `yaml:"database"`
	State    StateConfig            `yaml:"state"`
	Shop     ShopConfig             `yaml:"shop"`
	Photos   transport.PhotoOptions `yaml:"photos"`
	AWS      AWSConfig              `yaml:"aws"`

	location *time.Location
}

// CoreConfig exposes the core section to the command runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Location is the zone order times are reported in.
func (c *Config) Location() *time.Location {
	if c == nil || c.location == nil {
		return time.Local
	}
	return c.location
}

// LoadOptions customise Load.
type LoadOptions struct {
	// DotEnv is loaded before the environment is read; missing files are ignored.
	DotEnv string
	// RequireToken fails loading when no bot token can be found.
	RequireToken bool
	// Params fetches the token from Parameter Store when telegram.token_param is set.
	// nil builds an SSM client from the default AWS credential chain.
	Params func(ctx context.Context, aws AWSConfig) (secrets.Getter, error)
}

// Load reads the configuration for running the bot.
func Load(path string) (*Config, error) {
	return LoadWith(context.Background(), path, LoadOptions{DotEnv: ".env", RequireToken: true})
}

// LoadOffline reads the configuration for commands that do not talk to Telegram.
func LoadOffline(path string) (*Config, error) {
	return LoadWith(context.Background(), path, LoadOptions{DotEnv: ".env"})
}

// LoadWith reads .env, the YAML file and the environment, resolves the token
// and validates every section.
func LoadWith(ctx context.Context, path string, opts LoadOptions) (*Config, error) {
	if opts.DotEnv != "" {
		if err := loadDotEnv(opts.DotEnv); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", opts.DotEnv, err)
		}
	}

	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}

	if opts.RequireToken && cfg.Telegram.Token == "" && strings.TrimSpace(cfg.Telegram.TokenParam) != "" {
		token, err := fetchToken(ctx, cfg, opts)
		if err != nil {
			return nil, err
		}
		cfg.Telegram.Token = token
	}

	normalizeCore := coreconfig.NormalizeOffline
	if opts.RequireToken {
		normalizeCore = coreconfig.Normalize
	}
	if err := normalizeCore(&cfg.Config); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func fetchToken(ctx context.Context, cfg Config, opts LoadOptions) (string, error) {
	newParams := opts.Params
	if newParams == nil {
		newParams = newParamStore
	}
	params, err := newParams(ctx, cfg.AWS)
	if err != nil {
		return "", fmt.Errorf("failed to init parameter store: %w", err)
	}
	token, err := params.GetParameter(ctx, cfg.Telegram.TokenParam)
	if err != nil {
		return "", fmt.Errorf("failed to fetch bot token: %w", err)
	}
	return token, nil
}

func (c *Config) normalize() error {
	if err := c.Database.Normalize(); err != nil {
		return err
	}

	c.State.Backend = strings.ToLower(strings.TrimSpace(c.State.Backend))
	switch c.State.Backend {
	case "":
		c.State.Backend = StateBackendSQL
	case StateBackendSQL:
	case StateBackendDynamoDB:
		if strings.TrimSpace(c.State.DynamoDBTable) == "" {
			return errors.New("state.dynamodb_table is required for the dynamodb backend")
		}
		if c.Database.Driver == coredatabase.DriverMemory {
			return errors.New("state.backend dynamodb needs an sql database for the catalog")
		}
	default:
		return fmt.Errorf("invalid state.backend %q; allowed: sql, dynamodb", c.State.Backend)
	}

	if c.Shop.DisplayLimit < 0 {
		return errors.New("shop.display_limit must be >= 0")
	}
	if strings.TrimSpace(c.Shop.PlaceholderName) == "" {
		c.Shop.PlaceholderName = "Друг"
	}
	if tz := strings.TrimSpace(c.Shop.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid shop.timezone %q: %w", tz, err)
		}
		c.location = loc
	}
	if c.Photos.MaxSide < 0 {
		return errors.New("photos.max_side must be >= 0")
	}
	return nil
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
