package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/ArtemDzuba/bakery-bot/core/config"
	coredatabase "github.com/ArtemDzuba/bakery-bot/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	require.Error(t, err)
}

func TestRunMemoryDriverSkipsDatabase(t *testing.T) {
	migrated, seeded := false, false
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Driver: coredatabase.DriverMemory},
		LoggerInit: noLogger,
		Migrate: func(coredatabase.Config) error {
			migrated = true
			return nil
		},
		Seeders: []Seeder{SeederFunc(func(context.Context, *sqlx.DB) error {
			seeded = true
			return nil
		})},
	})
	require.NoError(t, err)
	assert.Nil(t, res.DB)
	assert.False(t, migrated)
	assert.False(t, seeded)
	assert.NoError(t, res.Close())
}

func TestRunPropagatesConnectError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Connect:    func(coredatabase.Config) (*sqlx.DB, error) { return nil, boom },
	})
	require.ErrorIs(t, err, boom)
}

func TestRunLoggerError(t *testing.T) {
	boom := errors.New("no sink")
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return boom },
	})
	require.ErrorIs(t, err, boom)
}
