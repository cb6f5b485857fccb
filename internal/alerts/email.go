package alerts

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Raw HTML in model output is dropped; goldmark only emits it with WithUnsafe.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
)

// RenderMarkdown converts a markdown summary to HTML
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// UnsubscribeURL builds the one-click unsubscribe link for a token
func UnsubscribeURL(siteURL, token string) string {
	return strings.TrimRight(siteURL, "/") + "/api/newsletter/unsubscribe?token=" + url.QueryEscape(token)
}

func articleURL(siteURL string, id int64) string {
	return fmt.Sprintf("%s/articles/%d", strings.TrimRight(siteURL, "/"), id)
}

// renderComponent renders c to a string
func renderComponent(ctx context.Context, c templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
