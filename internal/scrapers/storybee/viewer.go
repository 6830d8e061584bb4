package storybee

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
)

var viewerConfigRegex = regexp.MustCompile(`(?s)var\s+htmlConfig\s*=\s*(\{.*\})\s*;`)

// pageNames is the list of file names a page can be served under. The viewer usually writes
// a list but some books carry a bare string.
type pageNames []string

func (n *pageNames) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		err := json.Unmarshal(data, &name)
		if err != nil {
			return err
		}
		*n = pageNames{name}
		return nil
	}
	var names []string
	err := json.Unmarshal(data, &names)
	if err != nil {
		return err
	}
	*n = names
	return nil
}

type viewerPage struct {
	N pageNames `json:"n"`
}

type viewerConfig struct {
	Pages *[]viewerPage `json:"fliphtml5_pages"`
	Meta  struct {
		Title string `json:"title"`
	} `json:"meta"`
}

// parseViewerConfig extracts the page file names and book title from the body of the
// viewer's config.js script.
func parseViewerConfig(script []byte) (names []string, title string, err error) {
	groups := viewerConfigRegex.FindSubmatch(script)
	if len(groups) < 2 {
		return nil, "", fmt.Errorf("%w: htmlConfig assignment not found", ErrConfigParse)
	}

	var cfg viewerConfig
	err = json.Unmarshal(groups[1], &cfg)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrConfigParse, err)
	}
	if cfg.Pages == nil {
		return nil, "", fmt.Errorf("%w: fliphtml5_pages is missing", ErrConfigParse)
	}

	names = make([]string, 0, len(*cfg.Pages))
	for i, page := range *cfg.Pages {
		if len(page.N) == 0 || page.N[0] == "" {
			return nil, "", fmt.Errorf("%w: page %d has no file name", ErrConfigParse, i)
		}
		names = append(names, page.N[0])
	}
	return names, cfg.Meta.Title, nil
}
