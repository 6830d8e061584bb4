package storybee

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
)

type cookieRecord struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ParseCookies reads a persisted cookie file, either an object of name to value or a list
// of {"name", "value"} records.
func ParseCookies(data []byte) ([]*http.Cookie, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	var cookies []*http.Cookie
	switch trimmed[0] {
	case '{':
		var values map[string]string
		err := json.Unmarshal([]byte(trimmed), &values)
		if err != nil {
			return nil, fmt.Errorf("parse cookie map: %w", err)
		}
		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			cookies = append(cookies, &http.Cookie{Name: name, Value: values[name]})
		}
	case '[':
		var records []cookieRecord
		err := json.Unmarshal([]byte(trimmed), &records)
		if err != nil {
			return nil, fmt.Errorf("parse cookie list: %w", err)
		}
		for _, record := range records {
			if record.Name == "" {
				continue
			}
			cookies = append(cookies, &http.Cookie{Name: record.Name, Value: record.Value})
		}
	default:
		return nil, fmt.Errorf("parse cookies: expected a json object or list")
	}
	return cookies, nil
}

// LoadCookies reads the cookie file at path. A missing file yields no cookies and
// os.ErrNotExist so that callers may choose to continue without a session.
func LoadCookies(path string) ([]*http.Cookie, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}
	cookies, err := ParseCookies(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cookies, nil
}
