package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aquascope/internal/cache"
	"aquascope/internal/config"
	"aquascope/internal/session"
)

type configKey struct{}

func withConfig(ctx context.Context, cfg config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// configFrom returns the configuration installed by setupCommand, or the
// defaults when a command runs without it.
func configFrom(ctx context.Context) config.Config {
	if ctx != nil {
		if cfg, ok := ctx.Value(configKey{}).(config.Config); ok {
			return cfg
		}
	}
	return config.Default()
}

func configFileName() string {
	return config.FileName
}

// loadConfig reads --config, or the nearest aquascope.toml above the
// working directory, and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Root().PersistentFlags()
	path, err := flags.GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}

	var cfg config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		var wd string
		wd, err = os.Getwd()
		if err != nil {
			return config.Config{}, err
		}
		cfg, err = config.Discover(wd)
	}
	if err != nil {
		return config.Config{}, err
	}

	if flags.Changed("cache-dir") {
		dir, err := flags.GetString("cache-dir")
		if err != nil {
			return config.Config{}, err
		}
		cfg.Cache.Dir = dir
	}
	return cfg, nil
}

// sessionOptions builds session options from the configuration. Sessions
// rendered in parallel must not share one: tag generators are not safe for
// concurrent use.
func sessionOptions(cfg config.Config) session.Options {
	return session.Options{
		Classes:   cfg.RenderClasses(),
		Revealed:  cfg.Classes.Revealed,
		Tags:      cfg.TagGenerator(),
		TagLength: cfg.Tags.Length,
	}
}

// openCache returns nil when caching is disabled.
func openCache(cfg config.Config) (*cache.DiskCache, error) {
	if cfg.Cache.Disable {
		return nil, nil
	}
	if cfg.Cache.Dir != "" {
		return cache.OpenDir(cfg.Cache.Dir)
	}
	return cache.Open("aquascope")
}
