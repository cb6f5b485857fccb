package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tkilaker/dronewire/internal/ai"
	"github.com/tkilaker/dronewire/internal/alerts"
	"github.com/tkilaker/dronewire/internal/backfill"
	"github.com/tkilaker/dronewire/internal/config"
	"github.com/tkilaker/dronewire/internal/contracts"
	"github.com/tkilaker/dronewire/internal/database"
	"github.com/tkilaker/dronewire/internal/health"
	"github.com/tkilaker/dronewire/internal/logging"
	"github.com/tkilaker/dronewire/internal/related"
	"github.com/tkilaker/dronewire/internal/scraper"
)

// MockStore implements Store for testing
type MockStore struct {
	ListArticlesFunc            func(ctx context.Context, f database.ArticleFilter) ([]*database.Article, int, error)
	GetArticleByIDFunc          func(ctx context.Context, id int64) (*database.Article, error)
	IncrementViewCountFunc      func(ctx context.Context, id int64) error
	GetRecentArticlesFunc       func(ctx context.Context, limit int) ([]*database.Article, error)
	ListContractsFunc           func(ctx context.Context, f database.ContractFilter) ([]*database.Contract, int, error)
	CreateContactSubmissionFunc func(ctx context.Context, c *database.ContactSubmission) error
	CreateSubscriberFunc        func(ctx context.Context, s *database.Subscriber) error
	UnsubscribeFunc             func(ctx context.Context, token string) error
	GetStatsFunc                func(ctx context.Context) (*database.Stats, error)
	ListFeedsFunc               func(ctx context.Context) ([]*database.Feed, error)
	CreateFeedFunc              func(ctx context.Context, feed *database.Feed) error
}

func (m *MockStore) ListArticles(ctx context.Context, f database.ArticleFilter) ([]*database.Article, int, error) {
	if m.ListArticlesFunc != nil {
		return m.ListArticlesFunc(ctx, f)
	}
	return nil, 0, nil
}

func (m *MockStore) GetArticleByID(ctx context.Context, id int64) (*database.Article, error) {
	if m.GetArticleByIDFunc != nil {
		return m.GetArticleByIDFunc(ctx, id)
	}
	return nil, database.ErrNotFound
}

func (m *MockStore) IncrementViewCount(ctx context.Context, id int64) error {
	if m.IncrementViewCountFunc != nil {
		return m.IncrementViewCountFunc(ctx, id)
	}
	return nil
}

func (m *MockStore) GetRecentArticles(ctx context.Context, limit int) ([]*database.Article, error) {
	if m.GetRecentArticlesFunc != nil {
		return m.GetRecentArticlesFunc(ctx, limit)
	}
	return nil, nil
}

func (m *MockStore) ListContracts(ctx context.Context, f database.ContractFilter) ([]*database.Contract, int, error) {
	if m.ListContractsFunc != nil {
		return m.ListContractsFunc(ctx, f)
	}
	return nil, 0, nil
}

func (m *MockStore) CreateContactSubmission(ctx context.Context, c *database.ContactSubmission) error {
	if m.CreateContactSubmissionFunc != nil {
		return m.CreateContactSubmissionFunc(ctx, c)
	}
	return nil
}

func (m *MockStore) CreateSubscriber(ctx context.Context, s *database.Subscriber) error {
	if m.CreateSubscriberFunc != nil {
		return m.CreateSubscriberFunc(ctx, s)
	}
	return nil
}

func (m *MockStore) Unsubscribe(ctx context.Context, token string) error {
	if m.UnsubscribeFunc != nil {
		return m.UnsubscribeFunc(ctx, token)
	}
	return nil
}

func (m *MockStore) GetStats(ctx context.Context) (*database.Stats, error) {
	if m.GetStatsFunc != nil {
		return m.GetStatsFunc(ctx)
	}
	return &database.Stats{}, nil
}

func (m *MockStore) ListFeeds(ctx context.Context) ([]*database.Feed, error) {
	if m.ListFeedsFunc != nil {
		return m.ListFeedsFunc(ctx)
	}
	return nil, nil
}

func (m *MockStore) CreateFeed(ctx context.Context, feed *database.Feed) error {
	if m.CreateFeedFunc != nil {
		return m.CreateFeedFunc(ctx, feed)
	}
	return nil
}

// MockJobs implements every batch job interface the server routes to
type MockJobs struct {
	ScrapeFunc    func(ctx context.Context) (scraper.Result, error)
	ProcessFunc   func(ctx context.Context, limit int) (ai.Result, error)
	ContractsFunc func(ctx context.Context) (contracts.Result, error)
	AlertsFunc    func(ctx context.Context) (alerts.Result, error)
	BackfillFunc  func(ctx context.Context, limit int) (backfill.Result, error)
	RelatedFunc   func(ctx context.Context, id int64, limit int) ([]related.Scored, error)
	HealthFunc    func(ctx context.Context) health.Report

	progress *scraper.ProgressTracker
}

type mockScraper struct{ m *MockJobs }

func (s mockScraper) Run(ctx context.Context) (scraper.Result, error) {
	if s.m.ScrapeFunc != nil {
		return s.m.ScrapeFunc(ctx)
	}
	return scraper.Result{Errors: []string{}}, nil
}

func (s mockScraper) Progress() *scraper.ProgressTracker { return s.m.progress }

type mockProcessor struct{ m *MockJobs }

func (p mockProcessor) Run(ctx context.Context, limit int) (ai.Result, error) {
	if p.m.ProcessFunc != nil {
		return p.m.ProcessFunc(ctx, limit)
	}
	return ai.Result{Errors: []string{}}, nil
}

type mockContracts struct{ m *MockJobs }

func (c mockContracts) Run(ctx context.Context) (contracts.Result, error) {
	if c.m.ContractsFunc != nil {
		return c.m.ContractsFunc(ctx)
	}
	return contracts.Result{Errors: []string{}}, nil
}

type mockAlerts struct{ m *MockJobs }

func (a mockAlerts) Run(ctx context.Context) (alerts.Result, error) {
	if a.m.AlertsFunc != nil {
		return a.m.AlertsFunc(ctx)
	}
	return alerts.Result{Errors: []string{}}, nil
}

type mockBackfill struct{ m *MockJobs }

func (b mockBackfill) Run(ctx context.Context, limit int) (backfill.Result, error) {
	if b.m.BackfillFunc != nil {
		return b.m.BackfillFunc(ctx, limit)
	}
	return backfill.Result{Errors: []string{}}, nil
}

type mockRelated struct{ m *MockJobs }

func (r mockRelated) Related(ctx context.Context, id int64, limit int) ([]related.Scored, error) {
	if r.m.RelatedFunc != nil {
		return r.m.RelatedFunc(ctx, id, limit)
	}
	return nil, nil
}

type mockHealth struct{ m *MockJobs }

func (h mockHealth) Run(ctx context.Context) health.Report {
	if h.m.HealthFunc != nil {
		return h.m.HealthFunc(ctx)
	}
	return health.Report{Status: health.StatusOK}
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []alerts.Message
}

func (r *recordingMailer) Send(_ context.Context, msg alerts.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingMailer) messages() []alerts.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]alerts.Message(nil), r.sent...)
}

type testServer struct {
	*Server
	store  *MockStore
	jobs   *MockJobs
	mailer *recordingMailer
}

func testConfig() *config.Config {
	return &config.Config{
		SiteURL:         "https://dronewire.test",
		FeedTitle:       "Dronewire",
		FeedDescription: "Counter-UAS and drone warfare news",
		FeedAuthor:      "Dronewire",
		CronSecret:      "cron-secret",
		AdminSecret:     "admin-secret",
	}
}

func newTestServer(cfg *config.Config) *testServer {
	store := &MockStore{}
	jobs := &MockJobs{progress: scraper.NewProgressTracker()}
	mailer := &recordingMailer{}

	srv := New(Deps{
		Store:     store,
		Scraper:   mockScraper{jobs},
		Processor: mockProcessor{jobs},
		Contracts: mockContracts{jobs},
		Alerts:    mockAlerts{jobs},
		Backfill:  mockBackfill{jobs},
		Related:   mockRelated{jobs},
		Health:    mockHealth{jobs},
		Mailer:    mailer,
	}, cfg, logging.Discard())

	return &testServer{Server: srv, store: store, jobs: jobs, mailer: mailer}
}

func (ts *testServer) do(method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.Router().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func TestCronAuth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		secret     string
		headers    []string
		wantStatus int
	}{
		{"no credentials", "cron-secret", nil, http.StatusUnauthorized},
		{"wrong bearer", "cron-secret", []string{"Authorization", "Bearer nope"}, http.StatusUnauthorized},
		{"bearer", "cron-secret", []string{"Authorization", "Bearer cron-secret"}, http.StatusOK},
		{"header", "cron-secret", []string{"X-Cron-Secret", "cron-secret"}, http.StatusOK},
		{"basic scheme ignored", "cron-secret", []string{"Authorization", "Basic cron-secret"}, http.StatusUnauthorized},
		{"secret unset", "", []string{"Authorization", "Bearer "}, http.StatusUnauthorized},
		{"secret unset with header", "", []string{"X-Cron-Secret", ""}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			cfg.CronSecret = tt.secret
			ts := newTestServer(cfg)

			w := ts.do(http.MethodGet, "/api/cron/send-alerts", nil, tt.headers...)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestAdminRequiresAdminSecret(t *testing.T) {
	t.Parallel()
	ts := newTestServer(testConfig())

	if w := ts.do(http.MethodGet, "/api/admin/stats", nil, "Authorization", "Bearer cron-secret"); w.Code != http.StatusUnauthorized {
		t.Errorf("cron secret on admin route: status = %d, want 401", w.Code)
	}
	if w := ts.do(http.MethodGet, "/api/admin/stats", nil, "Authorization", "Bearer admin-secret"); w.Code != http.StatusOK {
		t.Errorf("admin secret: status = %d, want 200", w.Code)
	}
}

func TestCronJobs(t *testing.T) {
	t.Parallel()
	ts := newTestServer(testConfig())
	auth := []string{"Authorization", "Bearer cron-secret"}

	var gotLimit atomic.Int32
	ts.jobs.ProcessFunc = func(_ context.Context, limit int) (ai.Result, error) {
		gotLimit.Store(int32(limit))
		return ai.Result{Processed: 9, Failed: 1, Errors: []string{"article 4: boom"}}, nil
	}

	w := ts.do(http.MethodGet, "/api/cron/process-ai?limit=10", nil, auth...)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotLimit.Load() != 10 {
		t.Errorf("limit = %d, want 10", gotLimit.Load())
	}
	res := decode[ai.Result](t, w)
	if res.Processed != 9 || res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}

	ts.jobs.ScrapeFunc = func(context.Context) (scraper.Result, error) {
		return scraper.Result{Errors: []string{}}, scraper.ErrAlreadyRunning
	}
	if w := ts.do(http.MethodGet, "/api/cron/scrape-rss", nil, auth...); w.Code != http.StatusConflict {
		t.Errorf("concurrent scrape: status = %d, want 409", w.Code)
	}

	ts.jobs.ContractsFunc = func(context.Context) (contracts.Result, error) {
		return contracts.Result{Errors: []string{}}, errors.New("search failed")
	}
	w = ts.do(http.MethodGet, "/api/cron/scrape-contracts", nil, auth...)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("failed job: status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "search failed") {
		t.Errorf("body = %s, want error message", w.Body.String())
	}

	if w := ts.do(http.MethodGet, "/api/cron/backfill-images", nil, auth...); w.Code != http.StatusOK {
		t.Errorf("backfill: status = %d, want 200", w.Code)
	}
}

func TestListArticles(t *testing.T) {
	t.Parallel()
	ts := newTestServer(testConfig())

	var got database.ArticleFilter
	ts.store.ListArticlesFunc = func(_ context.Context, f database.ArticleFilter) ([]*database.Article, int, error) {
		got = f
		return []*database.Article{{ID: 1, Title: "Interceptor test"}}, 41, nil
	}

	w := ts.do(http.MethodGet, "/api/articles?page=2&limit=20&category=counter-uas&search=laser&sort=popular", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got.Page != 2 || got.Category != "counter-uas" || got.Search != "laser" || got.Sort != "popular" {
		t.Errorf("filter = %+v", got)
	}

	page := decode[Page[database.Article]](t, w)
	if page.Total != 41 || page.TotalPages != 3 || len(page.Items) != 1 {
		t.Errorf("page = %+v", page)
	}
}

func TestGetArticle(t *testing.T) {
	t.Parallel()
	ts := newTestServer(testConfig())

	ts.store.GetArticleByIDFunc = func(_ context.Context, id int64) (*database.Article, error) {
		switch id {
		case 1:
			return &database.Article{ID: 1, Status: database.StatusPublished, Title: "Published"}, nil
		case 2:
			return &database.Article{ID: 2, Status: database.StatusPendingAI}, nil
		}
		return nil, database.ErrNotFound
	}

	tests := []struct {
		path string
		want int
	}{
		{"/api/articles/1", http.StatusOK},
		{"/api/articles/2", http.StatusNotFound},
		{"/api/articles/3", http.StatusNotFound},
		{"/api/articles/abc", http.StatusBadRequest},
		{"/api/articles/0", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if w := ts.do(http.MethodGet, tt.path, nil); w.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, w.Code, tt.want)
		}
	}
}

func TestRelatedOnlyForPublished(t *testing.T) {
	t.Parallel()
	ts := newTestServer(testConfig())

	ts.store.GetArticleByIDFunc = func(_ context.Context, id int64) (*database.Article, error) {
		if id == 1 {
			return &database.Article{ID: 1, Status: database.StatusPublished}, nil
		}
		return &database.Article{ID: id, Status: database.StatusPendingAI}, nil
	}
	var calls atomic.Int32
	ts.jobs.RelatedFunc = func(_ context.Context, id int64, limit int) ([]related.Scored, error) {
		calls.Add(1)
		return []related.Scored{{Article: &database.Article{ID: 9}, Score: 2}}, nil
	}

	if w := ts.do(http.MethodGet, "/api/articles/2/related", nil); w.Code != http.StatusNotFound {
		t.Errorf("pending source: status = %d, want 404", w.Code)
	}
	if calls.Load() != 0 {
		t.Error("ranker ran for an unpublished article")
	}

	w := ts.do(http.MethodGet, "/api/articles/1/related?limit=3", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"score":2`) {
		t.Errorf("published source: %d %s", w.Code, w.Body.String())
	}
}

func TestArticleViewIsAsync(t *testing.T) {
	t.Parallel()
	ts := newTestServer(testConfig())

	var views atomic.Int64
	ts.store.IncrementViewCountFunc = func(_ context.Context, id int64) error {
		views.Add(id)
		return nil
	}

	w := ts.do(http.MethodPost, "/api/articles/7/view", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	ts.Wait()
	if views.Load() != 7 {
		t.Errorf("views = %d, want 7", views.Load())
	}
}

func TestListContracts(t *testing.T) {
	t.Parallel()
	ts := newTestServer(testConfig())

	var got database.ContractFilter
	ts.store.ListContractsFunc = func(_ context.Context, f database.ContractFilter) ([]*database.Contract, int, error) {
		got = f
		return nil, 0, nil
	}

	w := ts.do(http.MethodGet, "/api/contracts?agency=Army&sort=value&min_value=1000000", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got.Agency != "Army" || got.Sort != "value" || got.MinValue == nil || got.MinValue.String() != "1000000" {
		t.Errorf("filter = %+v", got)
	}
	if !strings.Contains(w.Body.String(), `"items":[]`) {
		t.Errorf("empty list should encode as [], got %s", w.Body.String())
	}

	if w := ts.do(http.MethodGet, "/api/contracts?min_value=lots", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad min_value: status = %d, want 400", w.Code)
	}
}

func TestContact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body any
		want int
	}{
		{"valid", map[string]string{"name": "Ana", "email": "ana@example.com", "message": "Hello"}, http.StatusCreated},
		{"missing message", map[string]string{"name": "Ana", "email": "ana@example.com"}, http.StatusBadRequest},
		{"missing name", map[string]string{"email": "ana@example.com", "message": "Hi"}, http.StatusBadRequest},
		{"bad email", map[string]string{"name": "Ana", "email": "ana@", "message": "Hi"}, http.StatusBadRequest},
		{"display name email", map[string]string{"name": "Ana", "email": "Ana <ana@example.com>", "message": "Hi"}, http.StatusBadRequest},
		{"malformed json", "{", http.StatusBadRequest},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts := newTestServer(testConfig())
			var stored *database.ContactSubmission
			ts.store.CreateContactSubmissionFunc = func(_ context.Context, c *database.ContactSubmission) error {
				stored = c
				return nil
			}

			w := ts.do(http.MethodPost, "/api/contact", tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if tt.want == http.StatusCreated && (stored == nil || stored.Email != "ana@example.com") {
				t.Errorf("stored = %+v", stored)
			}
		})
	}
}

func TestSubscribe(t *testing.T) {
	t.Parallel()
	ts := newTestServer(testConfig())

	var stored *database.Subscriber
	ts.store.CreateSubscriberFunc = func(_ context.Context, s *database.Subscriber) error {
		if s.Email == "dup@example.com" {
			return database.ErrDuplicate
		}
		s.UnsubscribeToken = "tok-123"
		stored = s
		return nil
	}

	w := ts.do(http.MethodPost, "/api/newsletter", map[string]any{
		"email":          "New@Example.com",
		"categories":     []string{"counter-uas", "counter-uas", "policy"},
		"min_confidence": 0.9,
		"frequency":      "daily",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", w.Code, w.Body.String())
	}
	ts.Wait()

	if stored.Email != "new@example.com" || stored.MinConfidence != 0.9 || stored.AlertFrequency != "daily" {
		t.Errorf("stored = %+v", stored)
	}
	if len(stored.Categories) != 2 {
		t.Errorf("categories = %v, want deduplicated", stored.Categories)
	}

	sent := ts.mailer.messages()
	if len(sent) != 1 || sent[0].To != "new@example.com" {
		t.Fatalf("welcome emails = %+v", sent)
	}
	if !strings.Contains(sent[0].HTML, "token=tok-123") {
		t.Errorf("welcome email lacks unsubscribe link")
	}

	w = ts.do(http.MethodPost, "/api/newsletter", map[string]any{"email": "dup@example.com"})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "already subscribed") {
		t.Errorf("duplicate: %d %s", w.Code, w.Body.String())
	}

	for _, body := range []map[string]any{
		{"email": "nope"},
		{"email": "a@example.com", "frequency": "hourly"},
		{"email": "a@example.com", "min_confidence": 1.5},
		{"email": "a@example.com", "categories": []string{"sports"}},
	} {
		if w := ts.do(http.MethodPost, "/api/newsletter", body); w.Code != http.StatusBadRequest {
			t.Errorf("%v: status = %d, want 400", body, w.Code)
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()
	ts := newTestServer(testConfig())
	ts.store.UnsubscribeFunc = func(_ context.Context, token string) error {
		if token != "good" {
			return database.ErrNotFound
		}
		return nil
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/api/newsletter/unsubscribe?token=good", http.StatusOK},
		{"/api/newsletter/unsubscribe?token=bad", http.StatusNotFound},
		{"/api/newsletter/unsubscribe", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if w := ts.do(http.MethodGet, tt.target, nil); w.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.target, w.Code, tt.want)
		}
	}
}

func TestHealthStatusCodes(t *testing.T) {
	t.Parallel()

	for status, want := range map[string]int{
		health.StatusOK:       http.StatusOK,
		health.StatusDegraded: http.StatusOK,
		health.StatusError:    http.StatusServiceUnavailable,
	} {
		ts := newTestServer(testConfig())
		status := status
		ts.jobs.HealthFunc = func(context.Context) health.Report {
			return health.Report{Status: status}
		}
		if w := ts.do(http.MethodGet, "/health", nil); w.Code != want {
			t.Errorf("%s: status = %d, want %d", status, w.Code, want)
		}
	}
}

func TestAdminCreateFeed(t *testing.T) {
	t.Parallel()
	ts := newTestServer(testConfig())
	auth := []string{"Authorization", "Bearer admin-secret"}

	ts.store.CreateFeedFunc = func(_ context.Context, f *database.Feed) error {
		if f.URL == "https://dup.example.com/feed" {
			return database.ErrDuplicate
		}
		f.ID = 12
		return nil
	}

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"valid", map[string]string{"name": "Defense Scoop", "url": "https://example.com/feed", "category": "policy"}, http.StatusCreated},
		{"relative url", map[string]string{"name": "x", "url": "/feed"}, http.StatusBadRequest},
		{"ftp url", map[string]string{"name": "x", "url": "ftp://example.com/feed"}, http.StatusBadRequest},
		{"missing name", map[string]string{"url": "https://example.com/feed"}, http.StatusBadRequest},
		{"duplicate", map[string]string{"name": "x", "url": "https://dup.example.com/feed"}, http.StatusConflict},
	}
	for _, tt := range tests {
		if w := ts.do(http.MethodPost, "/api/admin/feeds", tt.body, auth...); w.Code != tt.want {
			t.Errorf("%s: status = %d, want %d (%s)", tt.name, w.Code, tt.want, w.Body.String())
		}
	}
}

func TestScrapeProgress(t *testing.T) {
	t.Parallel()
	ts := newTestServer(testConfig())
	ts.jobs.progress.Begin(4)
	ts.jobs.progress.UpdateProgress(2, "The War Zone")

	w := ts.do(http.MethodGet, "/api/admin/scrape/progress", nil, "Authorization", "Bearer admin-secret")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	p := decode[scraper.ProgressUpdate](t, w)
	if p.Status != scraper.StatusScraping || p.CurrentFeed != 2 || p.TotalFeeds != 4 {
		t.Errorf("progress = %+v", p)
	}
}
