package storybee

import (
	"bytes"
	"fmt"
	"net/url"
	"storybee-crawler/internal/htmlutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const DefaultCategoryTitle = "default"

// Category is one titled list of books on the site's landing page.
type Category struct {
	Title    string
	BookUrls []string
}

// ParseCatalog reads the book lists of the landing page, relative book links are resolved
// against baseUrl.
func ParseCatalog(page []byte, baseUrl string) ([]Category, error) {
	base, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse catalog page: %w", err)
	}

	var categories []Category
	doc.Find("div.user-items-list").Each(func(_ int, group *goquery.Selection) {
		title := htmlutil.SelectionText(group.Find("div.list-section-title p"))
		if title == "" {
			title = DefaultCategoryTitle
		}

		category := Category{Title: title}
		group.Find("a.list-item-content__button").Each(func(_ int, anchor *goquery.Selection) {
			href := strings.TrimSpace(anchor.AttrOr("href", ""))
			if href == "" {
				return
			}
			bookUrl, err := base.Parse(href)
			if err != nil {
				return
			}
			category.BookUrls = append(category.BookUrls, bookUrl.String())
		})
		categories = append(categories, category)
	})
	return categories, nil
}

// Matches reports whether the category title contains filter, ignoring case.
func (c Category) Matches(filter string) bool {
	return strings.Contains(strings.ToLower(c.Title), strings.ToLower(filter))
}
