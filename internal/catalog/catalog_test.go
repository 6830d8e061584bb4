package catalog

import (
	"os"
	"path/filepath"
	"storybee-crawler/internal/scrapers/storybee"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestLoadMissing(t *testing.T) {
	cache, err := Load(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)
	require.Empty(t, cache)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte(`["not", "a", "map"]`), 0644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestMergeDeduplicates(t *testing.T) {
	cache := Cache{
		"Food": {"https://www.storybee.space/apple-pie"},
	}

	added := cache.Merge([]storybee.Category{
		{
			Title: "Food",
			BookUrls: []string{
				"https://www.storybee.space/honey",
				"https://www.storybee.space/apple-pie",
				"https://www.storybee.space/honey",
			},
		},
		{Title: "Empty"},
	})
	require.Equal(t, 1, added)

	added = cache.Merge([]storybee.Category{{
		Title:    "Food",
		BookUrls: []string{"https://www.storybee.space/honey"},
	}})
	require.Zero(t, added)

	expected := Cache{
		"Food": {
			"https://www.storybee.space/apple-pie",
			"https://www.storybee.space/honey",
		},
		"Empty": {},
	}
	if diff := cmp.Diff(expected, cache); diff != "" {
		t.Fatalf("cache mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	cache := Cache{
		"Animals": {"https://www.storybee.space/bee"},
	}
	require.NoError(t, cache.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "\n    \"Animals\": [\n        \"https://www.storybee.space/bee\""), string(data))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cache, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
