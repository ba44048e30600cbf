// Command bakerybot runs the bakery storefront bot.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	_ "time/tzdata"

	"github.com/ArtemDzuba/bakery-bot/core/cmd"
	"github.com/ArtemDzuba/bakery-bot/internal/app"
)

func main() {
	err := cmd.Execute(cmd.Options{
		Use:               "bakerybot",
		Short:             "Telegram storefront for a bakery",
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			cfg, err := app.Load(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: func(ctx context.Context, carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			cfg, ok := carrier.(*app.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", carrier)
			}
			a, err := app.Bootstrap(ctx, cfg, app.BootOptions{})
			if err != nil {
				return nil, err
			}
			return a, nil
		},
		Migrate: app.Migrate,
	})
	if err != nil {
		log.Printf("bakerybot: %v", err)
		os.Exit(1)
	}
}
