package commands

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"storybee-crawler/internal/configutil"
	"storybee-crawler/internal/scrapers/storybee"
	"storybee-crawler/internal/telemetry"
)

const configName = "storybee.json5"

type Config struct {
	BaseUrl          string `json:"base_url"`
	LegacyBaseUrl    string `json:"legacy_base_url"`
	SlideUrlTemplate string `json:"slide_url_template"`

	CookieFile       string `json:"cookie_file"`
	CatalogCacheFile string `json:"catalog_cache_file"`
	SourceDir        string `json:"source_dir"`
	OutputDir        string `json:"output_dir"`

	Referer           string  `json:"referer"`
	UserAgent         string  `json:"user_agent"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	MaxRedirects      int     `json:"max_redirects"`
	RetryAttempts     uint    `json:"retry_attempts"`
	RetryDelayMs      int     `json:"retry_delay_ms"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`

	LogLevel string               `json:"log_level"`
	Otlp     telemetry.OtlpConfig `json:"otlp"`
}

func defaultConfig() Config {
	client := storybee.DefaultClientOptions()
	return Config{
		BaseUrl:          storybee.DefaultBaseUrl,
		LegacyBaseUrl:    storybee.DefaultLegacyBaseUrl,
		SlideUrlTemplate: storybee.DefaultSlideUrlTemplate,
		CookieFile:       "cookies.json",
		CatalogCacheFile: "cache.json",
		SourceDir:        "source",
		OutputDir:        "Books",
		Referer:          client.Referer,
		UserAgent:        client.UserAgent,
		TimeoutSeconds:   int(client.Timeout.Seconds()),
		MaxRedirects:     client.MaxRedirects,
		RetryAttempts:    client.RetryAttempts,
		RetryDelayMs:     int(client.RetryDelay.Milliseconds()),
		LogLevel:         "info",
	}
}

// loadConfig finds storybee.json5 in the working directory or one of its parents and fills
// unset fields with defaults. Relative paths are resolved against the directory the config
// was found in, or the working directory when there is none.
func loadConfig() (Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	config, dir, err := configutil.ReadRecursively[Config](wd, configName)
	if errors.Is(err, os.ErrNotExist) {
		config = Config{}
		dir = wd
	} else if err != nil {
		return Config{}, err
	} else {
		slog.Debug("loaded config", "path", filepath.Join(dir, configName))
	}

	err = configutil.ApplyDefaults(&config, defaultConfig())
	if err != nil {
		return Config{}, err
	}

	for _, path := range []*string{
		&config.CookieFile,
		&config.CatalogCacheFile,
		&config.SourceDir,
		&config.OutputDir,
	} {
		if !filepath.IsAbs(*path) {
			*path = filepath.Join(dir, *path)
		}
	}
	return config, nil
}
