package storybee

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseCookies(t *testing.T) {
	table := []struct {
		name     string
		input    string
		expected []*http.Cookie
	}{
		{
			name:  "map",
			input: `{"b_session": "2", "a_token": "1"}`,
			expected: []*http.Cookie{
				{Name: "a_token", Value: "1"},
				{Name: "b_session", Value: "2"},
			},
		},
		{
			name:  "records",
			input: `[{"name": "sid", "value": "x", "domain": ".storybee.space"}, {"name": "", "value": "skip"}]`,
			expected: []*http.Cookie{
				{Name: "sid", Value: "x"},
			},
		},
		{
			name:  "empty",
			input: "  \n",
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			cookies, err := ParseCookies([]byte(row.input))
			require.NoError(t, err)
			if diff := cmp.Diff(row.expected, cookies); diff != "" {
				t.Fatalf("cookies mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseCookiesInvalid(t *testing.T) {
	for _, input := range []string{`"string"`, `{"a": 1}`, `[1, 2]`, `{`} {
		_, err := ParseCookies([]byte(input))
		require.Error(t, err, input)
	}
}

func TestLoadCookies(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadCookies(filepath.Join(dir, "missing.json"))
	require.True(t, errors.Is(err, os.ErrNotExist))

	path := filepath.Join(dir, "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sid": "1"}`), 0644))
	cookies, err := LoadCookies(path)
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	require.Equal(t, "sid", cookies[0].Name)
}
