package commands

import (
	"os"
	"path/filepath"
	"storybee-crawler/internal/scrapers/storybee"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	config, err := loadConfig()
	require.NoError(t, err)
	require.Equal(t, storybee.DefaultBaseUrl, config.BaseUrl)
	require.Equal(t, storybee.DefaultLegacyBaseUrl, config.LegacyBaseUrl)
	require.Equal(t, 10, config.MaxRedirects)
	require.Equal(t, filepath.Join(dir, "Books"), config.OutputDir)
	require.Equal(t, filepath.Join(dir, "source"), config.SourceDir)
}

func TestLoadConfigFromParent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, configName), []byte(`{
		// trailing commas and comments are fine
		output_dir: "/srv/books",
		source_dir: "images",
		retry_attempts: 5,
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "storybee.local.json5"), []byte(`{
		retry_attempts: 7,
	}`), 0644))

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	chdir(t, nested)

	config, err := loadConfig()
	require.NoError(t, err)
	require.Equal(t, "/srv/books", config.OutputDir)
	require.Equal(t, filepath.Join(root, "images"), config.SourceDir)
	require.Equal(t, filepath.Join(root, "cookies.json"), config.CookieFile)
	require.EqualValues(t, 7, config.RetryAttempts)
	require.Equal(t, storybee.DefaultUserAgent, config.UserAgent)
}

func TestClientOptions(t *testing.T) {
	dir := t.TempDir()
	config := defaultConfig()
	config.CookieFile = filepath.Join(dir, "missing.json")

	opts, err := config.clientOptions()
	require.NoError(t, err)
	require.Empty(t, opts.Cookies)
	require.Equal(t, time.Minute, opts.Timeout)
	require.Equal(t, time.Second, opts.RetryDelay)

	config.CookieFile = filepath.Join(dir, "cookies.json")
	require.NoError(t, os.WriteFile(config.CookieFile, []byte(`[{"name": "sid", "value": "1"}]`), 0644))
	opts, err = config.clientOptions()
	require.NoError(t, err)
	require.Len(t, opts.Cookies, 1)

	require.NoError(t, os.WriteFile(config.CookieFile, []byte(`nope`), 0644))
	_, err = config.clientOptions()
	require.Error(t, err)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
