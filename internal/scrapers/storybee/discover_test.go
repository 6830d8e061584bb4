package storybee

import (
	"context"
	"errors"
	"fmt"
	"storybee-crawler/internal/telemetry"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakePageFetcher struct {
	pages map[string]string
	calls []string
}

func (f *fakePageFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	page, ok := f.pages[url]
	if !ok {
		return nil, &FetchError{Method: "GET", Url: url, StatusCode: 404}
	}
	return []byte(page), nil
}

func TestDiscoverGallery(t *testing.T) {
	fetcher := &fakePageFetcher{}
	discoverer := NewDiscoverer(fetcher, "", telemetry.NewTestAPI(t))

	page := `<html><body>
		<script src="/assets/config.js?v=1"></script>
		<figure class="gallery-slideshow-item"><img src="https://cdn.example.com/a/page-1.jpg?format=1500w"></figure>
		<figure class="gallery-slideshow-item"><img data-src="/static/page-2.png"></figure>
		<figure class="gallery-slideshow-item"><span>no image</span></figure>
		<figure class="gallery-slideshow-item"><img src="https://cdn.example.com/b/page-1.jpg"></figure>
	</body></html>`
	book := BookIdentity{Id: "hungry-bee", Variant: VariantV2, DisplayTitle: "hungry-bee"}

	discovery, err := discoverer.Discover(context.Background(), []byte(page), "https://www.storybee.space/hungry-bee", book)
	require.NoError(t, err)

	expected := Discovery{
		Slides: []SlideRef{
			{Remote: "https://cdn.example.com/a/page-1.jpg?format=1500w", LocalName: "page-1.jpg"},
			{Remote: "https://www.storybee.space/static/page-2.png", LocalName: "page-2.png"},
			{Remote: "https://cdn.example.com/b/page-1.jpg", LocalName: "page-1-2.jpg"},
		},
		Book:     book,
		Strategy: StrategyGallery,
	}
	if diff := cmp.Diff(expected, discovery); diff != "" {
		t.Fatalf("discovery mismatch (-want +got):\n%s", diff)
	}
	require.Empty(t, fetcher.calls, "viewer config must not be fetched when the gallery has slides")
}

func TestDiscoverViewerConfig(t *testing.T) {
	fetcher := &fakePageFetcher{
		pages: map[string]string{
			"http://books.storybee.space/books/abc123/javascript/config.js?q=42": `var htmlConfig = {"fliphtml5_pages":[{"n":["p1.jpg"]}],"meta":{"title":"My Book"}};`,
		},
	}
	discoverer := NewDiscoverer(fetcher, DefaultSlideUrlTemplate, telemetry.NewTestAPI(t))

	page := `<html><head>
		<script src="javascript/jquery.js"></script>
		<script src="javascript/config.js?q=42"></script>
	</head><body></body></html>`
	book := BookIdentity{Id: "abc123", Variant: VariantV1, DisplayTitle: "abc123"}

	discovery, err := discoverer.Discover(context.Background(), []byte(page), "http://books.storybee.space/books/abc123", book)
	require.NoError(t, err)

	require.Equal(t, StrategyViewerConfig, discovery.Strategy)
	require.Equal(t, []SlideRef{{
		Remote:    "http://books.storybee.space/books/abc123/files/large/p1.jpg?q=42",
		LocalName: "p1.jpg",
	}}, discovery.Slides)
	require.Equal(t, "My Book", discovery.Book.DisplayTitle)
	require.Equal(t, "abc123", discovery.Book.Id)
}

func TestDiscoverViewerConfigWithoutToken(t *testing.T) {
	fetcher := &fakePageFetcher{
		pages: map[string]string{
			"https://www.storybee.space/plain/config.js": `var htmlConfig = {"fliphtml5_pages":[{"n":["1.jpg"]},{"n":["2.jpg"]}],"meta":{"title":""}};`,
		},
	}
	discoverer := NewDiscoverer(fetcher, "https://cdn.example.com/%s/", telemetry.NewTestAPI(t))
	book := BookIdentity{Id: "plain", Variant: VariantV2, DisplayTitle: "plain"}

	discovery, err := discoverer.Discover(
		context.Background(),
		[]byte(`<script src="config.js"></script>`),
		"https://www.storybee.space/plain",
		book,
	)
	require.NoError(t, err)
	require.Equal(t, book, discovery.Book)
	require.Equal(t, []SlideRef{
		{Remote: "https://cdn.example.com/plain/1.jpg", LocalName: "1.jpg"},
		{Remote: "https://cdn.example.com/plain/2.jpg", LocalName: "2.jpg"},
	}, discovery.Slides)
}

func TestDiscoverFailures(t *testing.T) {
	book := BookIdentity{Id: "abc", Variant: VariantV2, DisplayTitle: "abc"}
	pageUrl := "https://www.storybee.space/abc"
	scriptUrl := "https://www.storybee.space/abc/config.js?t=1"
	script := `<script src="config.js?t=1"></script>`

	table := []struct {
		name     string
		page     string
		config   *string
		expected error
	}{
		{
			name:     "no slides or script",
			page:     `<html><body><p>nothing here</p></body></html>`,
			expected: ErrNoSlidesFound,
		},
		{
			name:     "gallery items without images",
			page:     `<figure class="gallery-slideshow-item"></figure>`,
			expected: ErrNoSlidesFound,
		},
		{
			name:     "empty page list",
			page:     script,
			config:   ptr(`var htmlConfig = {"fliphtml5_pages":[],"meta":{"title":"x"}};`),
			expected: ErrNoSlidesFound,
		},
		{
			name:     "malformed config",
			page:     script,
			config:   ptr(`window.htmlConfig = 1;`),
			expected: ErrConfigParse,
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			fetcher := &fakePageFetcher{pages: map[string]string{}}
			if row.config != nil {
				fetcher.pages[scriptUrl] = *row.config
			}
			discoverer := NewDiscoverer(fetcher, "", telemetry.NewTestAPI(t))

			discovery, err := discoverer.Discover(context.Background(), []byte(row.page), pageUrl, book)
			require.True(t, errors.Is(err, row.expected), fmt.Sprint(err))
			require.Empty(t, discovery.Slides)
		})
	}
}

func TestDiscoverScriptFetchFailure(t *testing.T) {
	discoverer := NewDiscoverer(&fakePageFetcher{}, "", telemetry.NewTestAPI(t))
	_, err := discoverer.Discover(
		context.Background(),
		[]byte(`<script src="config.js?t=1"></script>`),
		"https://www.storybee.space/abc",
		BookIdentity{Id: "abc", Variant: VariantV2, DisplayTitle: "abc"},
	)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, 404, fetchErr.StatusCode)
}

func TestUniqueLocalNames(t *testing.T) {
	slides := uniqueLocalNames([]SlideRef{
		{LocalName: "a.jpg"},
		{LocalName: "a.jpg"},
		{LocalName: "a-2.jpg"},
		{LocalName: "a.jpg"},
		{LocalName: "b"},
		{LocalName: "b"},
	})

	names := make([]string, len(slides))
	for i, slide := range slides {
		names[i] = slide.LocalName
	}
	require.Equal(t, []string{"a.jpg", "a-3.jpg", "a-2.jpg", "a-4.jpg", "b", "b-2"}, names)
}

func ptr[T any](v T) *T {
	return &v
}
