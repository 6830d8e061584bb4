package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"storybee-crawler/internal/crawler"
	"storybee-crawler/internal/scrapers/storybee"
	"storybee-crawler/internal/telemetry"
	"time"
)

type environment struct {
	config    Config
	crawler   *crawler.Crawler
	telemetry telemetry.Telemetry
}

func (e environment) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := e.telemetry.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err.Error())
	}
}

func (c Config) clientOptions() (storybee.ClientOptions, error) {
	cookies, err := storybee.LoadCookies(c.CookieFile)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("cookie file not found, continuing without a session", "path", c.CookieFile)
	} else if err != nil {
		return storybee.ClientOptions{}, err
	}

	return storybee.ClientOptions{
		UserAgent:         c.UserAgent,
		Referer:           c.Referer,
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		MaxRedirects:      c.MaxRedirects,
		RetryAttempts:     c.RetryAttempts,
		RetryDelay:        time.Duration(c.RetryDelayMs) * time.Millisecond,
		RequestsPerSecond: c.RequestsPerSecond,
		CloudflareBypass:  c.CloudflareBypass,
		Cookies:           cookies,
	}, nil
}

func setup(ctx context.Context) environment {
	config, err := loadConfig()
	if err != nil {
		fatal("failed to read config", err)
	}
	telemetry.InitSlog(telemetry.ParseLevel(config.LogLevel))

	otel, err := telemetry.Setup(ctx, "storybee-crawler", config.Otlp)
	if err != nil {
		fatal("failed to setup telemetry", err)
	}

	tel := telemetry.SlogAPI{}
	clientOpts, err := config.clientOptions()
	if err != nil {
		fatal("failed to load cookies", err)
	}
	client, err := storybee.NewClient(clientOpts, tel)
	if err != nil {
		fatal("failed to create http client", err)
	}

	return environment{
		config: config,
		crawler: crawler.New(client, crawler.Options{
			BaseUrl:          config.BaseUrl,
			LegacyBaseUrl:    config.LegacyBaseUrl,
			SlideUrlTemplate: config.SlideUrlTemplate,
			CatalogCacheFile: config.CatalogCacheFile,
			SourceDir:        config.SourceDir,
			OutputDir:        config.OutputDir,
		}, tel),
		telemetry: otel,
	}
}
