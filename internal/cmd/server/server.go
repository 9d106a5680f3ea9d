// Package server parses server command flags and starts the debate runtime.
package server

import (
	"context"
	"flag"

	"github.com/openpodium/podium/internal/app"
	entrypoint "github.com/openpodium/podium/internal/platform/cmd"
)

// Config holds server command configuration.
type Config struct {
	Port int    `env:"PODIUM_PORT" envDefault:"8080"`
	Addr string `env:"PODIUM_ADDR"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The debate server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The debate server listen address (overrides -port)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the debate orchestration service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(context.Context) error {
		if cfg.Addr != "" {
			return app.RunWithAddr(ctx, cfg.Addr)
		}
		return app.Run(ctx, cfg.Port)
	})
}
