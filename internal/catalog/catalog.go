// Package catalog persists the book urls found on the site's landing page, keyed by the
// category they were listed under.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"storybee-crawler/internal/scrapers/storybee"
)

type Cache map[string][]string

// Load reads the cache at path, a missing file is an empty cache.
func Load(path string) (Cache, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Cache{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog cache: %w", err)
	}

	cache := Cache{}
	err = json.Unmarshal(data, &cache)
	if err != nil {
		return nil, fmt.Errorf("parse catalog cache %s: %w", path, err)
	}
	return cache, nil
}

// Merge adds the urls of each category to the cache. Urls already listed under a category
// are not added again and existing entries keep their order. It returns the number of urls
// that were new.
func (c Cache) Merge(categories []storybee.Category) int {
	added := 0
	for _, category := range categories {
		urls := c[category.Title]
		seen := make(map[string]bool, len(urls)+len(category.BookUrls))
		for _, url := range urls {
			seen[url] = true
		}
		for _, url := range category.BookUrls {
			if seen[url] {
				continue
			}
			seen[url] = true
			urls = append(urls, url)
			added++
		}
		if urls == nil {
			urls = []string{}
		}
		c[category.Title] = urls
	}
	return added
}

// Save writes the cache to path, replacing the previous file only once the new one is
// fully written.
func (c Cache) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return fmt.Errorf("create catalog cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return fmt.Errorf("create catalog cache: %w", err)
	}
	_, err = tmp.Write(data)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write catalog cache: %w", err)
	}
	return nil
}
