package scraper

import (
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/tkilaker/dronewire/internal/extractor"
)

var imgTagRe = regexp.MustCompile(`(?i)<img[^>]+src\s*=\s*["']([^"']+)["']`)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".avif"}

// PickImage returns the first allowed image candidate for a feed item, trying
// enclosures, media:content, media:thumbnail, media:group, itunes:image, the
// item image and finally <img> tags embedded in the item HTML.
func PickImage(item *gofeed.Item, deny *extractor.ImageDenylist) string {
	for _, candidate := range imageCandidates(item) {
		if deny.Allowed(candidate) {
			return strings.TrimSpace(candidate)
		}
	}
	return ""
}

func imageCandidates(item *gofeed.Item) []string {
	var out []string

	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") || (enc.Type == "" && looksLikeImage(enc.URL)) {
			out = append(out, enc.URL)
		}
	}

	media := item.Extensions["media"]
	out = append(out, mediaURLs(media["content"])...)
	out = append(out, mediaURLs(media["thumbnail"])...)
	for _, group := range media["group"] {
		out = append(out, mediaURLs(group.Children["content"])...)
		out = append(out, mediaURLs(group.Children["thumbnail"])...)
	}

	if item.ITunesExt != nil && item.ITunesExt.Image != "" {
		out = append(out, item.ITunesExt.Image)
	}
	for _, img := range item.Extensions["itunes"]["image"] {
		if href := img.Attrs["href"]; href != "" {
			out = append(out, href)
		}
	}

	if item.Image != nil && item.Image.URL != "" {
		out = append(out, item.Image.URL)
	}

	for _, html := range []string{item.Content, item.Description} {
		for _, m := range imgTagRe.FindAllStringSubmatch(html, -1) {
			out = append(out, m[1])
		}
	}

	return out
}

// mediaURLs returns url attributes of media elements that are images or untyped.
func mediaURLs(elems []ext.Extension) []string {
	var out []string
	for _, e := range elems {
		u := e.Attrs["url"]
		if u == "" {
			continue
		}
		medium := e.Attrs["medium"]
		typ := e.Attrs["type"]
		if medium == "video" || medium == "audio" || strings.HasPrefix(typ, "video/") || strings.HasPrefix(typ, "audio/") {
			continue
		}
		out = append(out, u)
	}
	return out
}

func looksLikeImage(u string) bool {
	lower := strings.ToLower(u)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	for _, e := range imageExtensions {
		if strings.HasSuffix(lower, e) {
			return true
		}
	}
	return false
}
