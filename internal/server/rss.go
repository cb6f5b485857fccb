package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/tkilaker/dronewire/internal/config"
	"github.com/tkilaker/dronewire/internal/database"
)

const (
	rssItemLimit       = 50
	rssDescriptionSize = 500
)

// GenerateRSSFeed creates an RSS feed from published articles. gorilla/feeds
// escapes every text field.
func GenerateRSSFeed(articles []*database.Article, cfg *config.Config, now time.Time) (string, error) {
	feed := &feeds.Feed{
		Title:       cfg.FeedTitle,
		Link:        &feeds.Link{Href: cfg.SiteURL},
		Description: cfg.FeedDescription,
		Author:      &feeds.Author{Name: cfg.FeedAuthor},
		Created:     now,
	}

	feed.Items = make([]*feeds.Item, 0, len(articles))
	for _, article := range articles {
		link := fmt.Sprintf("%s/articles/%d", cfg.SiteURL, article.ID)
		item := &feeds.Item{
			Title:       article.Title,
			Link:        &feeds.Link{Href: link},
			Source:      &feeds.Link{Href: article.SourceURL},
			Id:          link,
			Description: itemDescription(article),
			Created:     article.PublishedAt,
		}
		if article.SourceName != "" {
			item.Author = &feeds.Author{Name: article.SourceName}
		}
		if item.Created.IsZero() {
			item.Created = article.CreatedAt
		}

		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		return "", fmt.Errorf("failed to generate RSS: %w", err)
	}

	return rss, nil
}

// itemDescription prefers the AI summary, then the excerpt, truncated for feed readers.
func itemDescription(article *database.Article) string {
	var description string
	switch {
	case article.Summary != nil && *article.Summary != "":
		description = *article.Summary
	case article.Excerpt != nil:
		description = *article.Excerpt
	}
	description = strings.TrimSpace(description)

	r := []rune(description)
	if len(r) > rssDescriptionSize {
		description = string(r[:rssDescriptionSize]) + "..."
	}
	return description
}
