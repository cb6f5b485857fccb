package extractor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/tkilaker/dronewire/internal/config"
)

const (
	maxContentChars  = 50000
	minContentChars  = 200
	minParagraphLen  = 50
	maxFallbackParas = 20
	minImageSize     = 200
	wordsPerMinute   = 200
)

// Result is the text and image pulled from an article page
type Result struct {
	Title           string
	Text            string
	ImageURL        string
	WordCount       int
	ReadTimeMinutes int
}

// Extractor pulls full article text and a representative image from a page
type Extractor struct {
	sites    []config.SiteRule
	fallback config.SiteRule
	deny     *ImageDenylist
	fetcher  Fetcher
	renderer Fetcher
	logger   *slog.Logger
}

// New creates an extractor. renderer may be nil, in which case pages marked
// render in the rules are fetched over plain HTTP too.
func New(rules *config.Rules, fetcher, renderer Fetcher, logger *slog.Logger) *Extractor {
	if fetcher == nil {
		fetcher = NewHTTPFetcher(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		sites:    rules.Sites,
		fallback: rules.DefaultSite,
		deny:     NewImageDenylist(rules.ImageDenylist),
		fetcher:  fetcher,
		renderer: renderer,
		logger:   logger.With("component", "extractor"),
	}
}

// Extract fetches pageURL and extracts its article.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (*Result, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", pageURL)
	}

	rule, matched := e.ruleFor(u.Hostname())

	fetcher := e.fetcher
	if matched && rule.Render && e.renderer != nil {
		fetcher = e.renderer
	}

	html, err := fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	res, err := e.ExtractHTML(html, u, rule)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("extracted page", "url", pageURL, "words", res.WordCount, "image", res.ImageURL != "")
	return res, nil
}

// ruleFor finds the site rule for host, matching on domain suffix with any
// leading www. stripped. The default rule is returned when none matches.
func (e *Extractor) ruleFor(host string) (config.SiteRule, bool) {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, site := range e.sites {
		for _, d := range site.Domains {
			if host == d || strings.HasSuffix(host, "."+d) {
				return site, true
			}
		}
	}
	return e.fallback, false
}

// ExtractHTML runs extraction over an already fetched page.
func (e *Extractor) ExtractHTML(html []byte, pageURL *url.URL, rule config.SiteRule) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	articleSelectors := append(append([]string{}, rule.Article...), e.fallback.Article...)

	res := &Result{Title: pageTitle(doc)}

	// Images are resolved before boilerplate removal so header figures survive.
	res.ImageURL = e.findImage(doc, pageURL, rule.Image, articleSelectors)

	for _, sel := range append(append([]string{}, e.fallback.Remove...), rule.Remove...) {
		doc.Find(sel).Remove()
	}

	text := articleText(doc, articleSelectors)
	if len(text) < minContentChars {
		if alt := paragraphFallback(doc); len(alt) > len(text) {
			text = alt
		}
	}
	if len(text) < minContentChars {
		if alt := readabilityText(html, pageURL); len(alt) > len(text) {
			text = alt
		}
	}

	res.Text = capRunes(text, maxContentChars)
	res.WordCount = len(strings.Fields(res.Text))
	res.ReadTimeMinutes = ReadTime(res.WordCount)
	return res, nil
}

// ReadTime estimates minutes to read wordCount words, never less than one.
func ReadTime(wordCount int) int {
	minutes := (wordCount + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

func pageTitle(doc *goquery.Document) string {
	if t, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// articleText joins the paragraphs under the first article selector that matches.
func articleText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}

		var parts []string
		container.Find("p").Each(func(_ int, p *goquery.Selection) {
			if t := cleanText(p.Text()); t != "" {
				parts = append(parts, t)
			}
		})
		if len(parts) == 0 {
			continue
		}
		return strings.Join(parts, "\n\n")
	}
	return ""
}

// paragraphFallback collects the first long paragraphs anywhere on the page.
func paragraphFallback(doc *goquery.Document) string {
	var parts []string
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if t := cleanText(p.Text()); len(t) > minParagraphLen {
			parts = append(parts, t)
		}
		return len(parts) < maxFallbackParas
	})
	return strings.Join(parts, "\n\n")
}

func readabilityText(html []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(html), pageURL)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}

func (e *Extractor) findImage(doc *goquery.Document, pageURL *url.URL, siteSelectors, articleSelectors []string) string {
	var candidates []string

	for _, sel := range siteSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			candidates = append(candidates, imgSource(s))
		})
	}

	for _, meta := range []string{
		`meta[property="og:image"]`,
		`meta[property="og:image:url"]`,
		`meta[name="twitter:image"]`,
		`meta[property="twitter:image"]`,
		`meta[name="twitter:image:src"]`,
	} {
		if v, ok := doc.Find(meta).Attr("content"); ok {
			candidates = append(candidates, v)
		}
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		candidates = append(candidates, jsonLDImages([]byte(s.Text()))...)
	})

	for _, c := range candidates {
		if resolved := resolveURL(pageURL, c); resolved != "" && e.deny.Allowed(resolved) {
			return resolved
		}
	}

	return e.firstArticleImage(doc, pageURL, articleSelectors)
}

// firstArticleImage returns the first large enough, non icon-like image
// inside the article body.
func (e *Extractor) firstArticleImage(doc *goquery.Document, pageURL *url.URL, selectors []string) string {
	for _, sel := range selectors {
		var found string
		doc.Find(sel).First().Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			if tooSmall(img) {
				return true
			}
			resolved := resolveURL(pageURL, imgSource(img))
			if resolved == "" || !e.deny.Allowed(resolved) {
				return true
			}
			found = resolved
			return false
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func imgSource(s *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src", "data-lazy-src", "content"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" && !strings.HasPrefix(v, "data:") {
			return strings.TrimSpace(v)
		}
	}
	if srcset, ok := s.Attr("srcset"); ok {
		if first := strings.Fields(strings.Split(srcset, ",")[0]); len(first) > 0 {
			return first[0]
		}
	}
	return ""
}

// tooSmall reports whether explicit width or height attributes are below the minimum.
func tooSmall(img *goquery.Selection) bool {
	for _, attr := range []string{"width", "height"} {
		if v, ok := img.Attr(attr); ok {
			n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px"))
			if err == nil && n < minImageSize {
				return true
			}
		}
	}
	return false
}

func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func capRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
