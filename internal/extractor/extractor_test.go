package extractor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/tkilaker/dronewire/internal/config"
	"github.com/tkilaker/dronewire/internal/logging"
)

func newTestExtractor(t *testing.T, fetcher, renderer Fetcher) *Extractor {
	t.Helper()
	return New(config.DefaultRules(), fetcher, renderer, logging.Discard())
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u
}

func paragraphs(n int, body string) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "<p>%s paragraph %d about counter-drone systems and interceptors.</p>", body, i)
	}
	return b.String()
}

func TestExtractHTMLArticleText(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t, nil, nil)
	page := `<html><head><title>Page</title>
		<meta property="og:title" content="Army fields new interceptor">
		<meta property="og:image" content="/images/hero.jpg"></head>
		<body><nav><p>Home | World | Defense news menu links that are long enough to count</p></nav>
		<article>` + paragraphs(5, "Body") + `<div class="share"><p>Share this on every social network you know about today</p></div></article>
		<footer><p>Copyright notice that is definitely longer than fifty characters total</p></footer></body></html>`

	res, err := e.ExtractHTML([]byte(page), mustURL(t, "https://news.example.com/a/b"), e.fallback)
	if err != nil {
		t.Fatalf("ExtractHTML: %v", err)
	}

	if res.Title != "Army fields new interceptor" {
		t.Errorf("Title = %q", res.Title)
	}
	if res.ImageURL != "https://news.example.com/images/hero.jpg" {
		t.Errorf("ImageURL = %q", res.ImageURL)
	}
	if !strings.Contains(res.Text, "Body paragraph 0") || !strings.Contains(res.Text, "Body paragraph 4") {
		t.Errorf("Text missing article paragraphs: %q", res.Text)
	}
	for _, junk := range []string{"Share this", "Copyright", "menu links"} {
		if strings.Contains(res.Text, junk) {
			t.Errorf("Text contains boilerplate %q", junk)
		}
	}
	if res.WordCount == 0 || res.ReadTimeMinutes != 1 {
		t.Errorf("WordCount = %d, ReadTimeMinutes = %d", res.WordCount, res.ReadTimeMinutes)
	}
}

func TestExtractHTMLParagraphFallback(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t, nil, nil)
	page := `<html><body><div class="layout">
		<p>short</p>` + paragraphs(25, "Loose") + `</div></body></html>`

	res, err := e.ExtractHTML([]byte(page), mustURL(t, "https://example.com/x"), e.fallback)
	if err != nil {
		t.Fatalf("ExtractHTML: %v", err)
	}
	if strings.Contains(res.Text, "short") {
		t.Errorf("short paragraph should be skipped: %q", res.Text)
	}
	if !strings.Contains(res.Text, "Loose paragraph 19") {
		t.Errorf("expected 20 paragraphs, got %q", res.Text)
	}
	if strings.Contains(res.Text, "Loose paragraph 20") {
		t.Errorf("fallback should stop at 20 paragraphs")
	}
}

func TestExtractHTMLCapsContent(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t, nil, nil)
	long := strings.Repeat("word ", 12000)
	page := `<html><body><article><p>` + long + `</p><p>` + long + `</p></article></body></html>`

	res, err := e.ExtractHTML([]byte(page), mustURL(t, "https://example.com/x"), e.fallback)
	if err != nil {
		t.Fatalf("ExtractHTML: %v", err)
	}
	if n := len([]rune(res.Text)); n != maxContentChars {
		t.Fatalf("len(Text) = %d, want %d", n, maxContentChars)
	}
	if res.ReadTimeMinutes != ReadTime(res.WordCount) || res.ReadTimeMinutes < 40 {
		t.Fatalf("ReadTimeMinutes = %d for %d words", res.ReadTimeMinutes, res.WordCount)
	}
}

func TestFindImage(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t, nil, nil)
	base := mustURL(t, "https://site.example.com/news/story")

	tests := []struct {
		name string
		head string
		body string
		want string
	}{
		{
			name: "twitter image when og missing",
			head: `<meta name="twitter:image" content="https://cdn.example.com/tw.jpg">`,
			want: "https://cdn.example.com/tw.jpg",
		},
		{
			name: "denylisted og image skipped",
			head: `<meta property="og:image" content="https://site.example.com/logo.png">
				<meta name="twitter:image" content="https://cdn.example.com/real.jpg">`,
			want: "https://cdn.example.com/real.jpg",
		},
		{
			name: "json-ld image object",
			head: `<script type="application/ld+json">{"@type":"NewsArticle","image":{"@type":"ImageObject","url":"https://cdn.example.com/ld.jpg"}}</script>`,
			want: "https://cdn.example.com/ld.jpg",
		},
		{
			name: "json-ld graph with list",
			head: `<script type="application/ld+json">{"@graph":[{"@type":"WebPage"},{"@type":"Article","image":["https://cdn.example.com/g1.jpg"]}]}</script>`,
			want: "https://cdn.example.com/g1.jpg",
		},
		{
			name: "first large article image",
			body: `<article><img src="/a/icon-share.png"><img src="/a/tiny.jpg" width="50" height="50"><img src="/a/photo.jpg" width="800"></article>`,
			want: "https://site.example.com/a/photo.jpg",
		},
		{
			name: "nothing",
			body: `<article><p>text</p></article>`,
			want: "",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			page := "<html><head>" + tt.head + "</head><body>" + tt.body + "</body></html>"
			res, err := e.ExtractHTML([]byte(page), base, e.fallback)
			if err != nil {
				t.Fatalf("ExtractHTML: %v", err)
			}
			if res.ImageURL != tt.want {
				t.Fatalf("ImageURL = %q, want %q", res.ImageURL, tt.want)
			}
		})
	}
}

func TestRuleFor(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t, nil, nil)

	if rule, ok := e.ruleFor("www.DefenseNews.com"); !ok || rule.Domains[0] != "defensenews.com" {
		t.Fatalf("expected defensenews rule, got %+v %v", rule, ok)
	}
	if _, ok := e.ruleFor("www.twz.com"); !ok {
		t.Fatalf("expected twz rule")
	}
	if _, ok := e.ruleFor("notdefensenews.com"); ok {
		t.Fatalf("suffix match must respect domain boundary")
	}
}

type stubFetcher struct {
	calls int
	html  string
}

func (s *stubFetcher) Fetch(context.Context, string) ([]byte, error) {
	s.calls++
	return []byte(s.html), nil
}

func TestExtractUsesRendererForRenderSites(t *testing.T) {
	t.Parallel()

	page := `<html><body><article>` + paragraphs(5, "Rendered") + `</article></body></html>`
	plain := &stubFetcher{html: page}
	render := &stubFetcher{html: page}
	e := newTestExtractor(t, plain, render)

	if _, err := e.Extract(context.Background(), "https://www.thedrive.com/the-war-zone/1"); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, err := e.Extract(context.Background(), "https://dronelife.com/post"); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if render.calls != 1 || plain.calls != 1 {
		t.Fatalf("render calls = %d, plain calls = %d", render.calls, plain.calls)
	}
}

func TestExtractOverHTTP(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != UserAgent {
			http.Error(w, "bad user agent", http.StatusBadRequest)
			return
		}
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><head><meta property="og:image" content="/img/lead.jpg"></head><body><article>`+paragraphs(4, "Served")+`</article></body></html>`)
	}))
	defer srv.Close()

	e := newTestExtractor(t, NewHTTPFetcher(srv.Client()), nil)

	res, err := e.Extract(context.Background(), srv.URL+"/story")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.ImageURL != srv.URL+"/img/lead.jpg" {
		t.Errorf("ImageURL = %q", res.ImageURL)
	}
	if !strings.Contains(res.Text, "Served paragraph 3") {
		t.Errorf("Text = %q", res.Text)
	}

	if _, err := e.Extract(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatal("expected error for 404")
	}
	if _, err := e.Extract(context.Background(), "not a url"); err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func TestReadTime(t *testing.T) {
	t.Parallel()

	cases := map[int]int{0: 1, 1: 1, 200: 1, 201: 2, 1000: 5}
	for words, want := range cases {
		if got := ReadTime(words); got != want {
			t.Errorf("ReadTime(%d) = %d, want %d", words, got, want)
		}
	}
}
