package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "Food", expected: "Food"},
		{input: "  Food &\n\t Drink  ", expected: "Food & Drink"},
		{input: "Animals\u200b", expected: "Animals"},
		{input: "", expected: ""},
	}

	for _, row := range table {
		require.Equal(t, row.expected, Normalize(row.input))
	}
}

func TestSelectionText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div class="title"><p>Bed <b>time</b>
			stories</p></div>`,
	))
	require.NoError(t, err)

	require.Equal(t, "Bed time stories", SelectionText(doc.Find("div.title p")))
	require.Equal(t, "", SelectionText(doc.Find("div.missing")))
}
