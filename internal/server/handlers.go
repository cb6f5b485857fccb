package server

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tkilaker/dronewire/internal/alerts"
	"github.com/tkilaker/dronewire/internal/database"
	"github.com/tkilaker/dronewire/internal/health"
)

const (
	maxNameLen    = 200
	maxMessageLen = 5000
)

// handleListArticles serves a page of published articles
func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := database.ArticleFilter{
		Page:     queryInt(r, "page", 1),
		Limit:    queryInt(r, "limit", 20),
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
	}

	articles, total, err := s.deps.Store.ListArticles(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newPage(articles, filter.Page, filter.Limit, total))
}

// handleGetArticle serves one published article with its tags
func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid article id")
		return
	}

	article, err := s.deps.Store.GetArticleByID(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if article.Status != database.StatusPublished {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	writeJSON(w, http.StatusOK, article)
}

// handleArticleView counts a view without holding up the response
func (s *Server) handleArticleView(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid article id")
		return
	}

	s.tasks.Go("increment-view", func(ctx context.Context) error {
		return s.deps.Store.IncrementViewCount(ctx, id)
	})

	w.WriteHeader(http.StatusAccepted)
}

// handleRelated ranks articles related to a published article
func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid article id")
		return
	}

	article, err := s.deps.Store.GetArticleByID(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if article.Status != database.StatusPublished {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	scored, err := s.deps.Related.Related(r.Context(), id, queryInt(r, "limit", 0))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": scored})
}

// handleListContracts serves a page of contract awards
func (s *Server) handleListContracts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := database.ContractFilter{
		Page:     queryInt(r, "page", 1),
		Limit:    queryInt(r, "limit", 20),
		Category: q.Get("category"),
		Agency:   q.Get("agency"),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
	}
	if raw := strings.TrimSpace(q.Get("min_value")); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_value")
			return
		}
		filter.MinValue = &v
	}

	items, total, err := s.deps.Store.ListContracts(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newPage(items, filter.Page, filter.Limit, total))
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// handleContact stores a contact form submission
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Message = strings.TrimSpace(req.Message)
	email, emailOK := normalizeEmail(req.Email)
	switch {
	case req.Name == "" || email == "" || req.Message == "":
		writeError(w, http.StatusBadRequest, "name, email and message are required")
		return
	case !emailOK:
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	case len(req.Name) > maxNameLen || len(req.Message) > maxMessageLen:
		writeError(w, http.StatusBadRequest, "field too long")
		return
	}

	submission := &database.ContactSubmission{
		Name:    req.Name,
		Email:   email,
		Company: optional(req.Company),
		Subject: optional(req.Subject),
		Message: req.Message,
	}
	if err := s.deps.Store.CreateContactSubmission(r.Context(), submission); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": submission.ID, "message": "received"})
}

type subscribeRequest struct {
	Email         string   `json:"email"`
	Categories    []string `json:"categories"`
	MinConfidence *float64 `json:"min_confidence"`
	Frequency     string   `json:"frequency"`
}

// handleSubscribe registers a newsletter subscriber and sends a welcome email
// in the background
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email, ok := normalizeEmail(req.Email)
	if !ok {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	sub := &database.Subscriber{
		Email:          email,
		AlertsEnabled:  true,
		AlertFrequency: database.FrequencyInstant,
		MinConfidence:  alerts.AlertThreshold,
		Categories:     []string{},
	}

	switch req.Frequency {
	case "":
	case database.FrequencyInstant, database.FrequencyDaily, database.FrequencyWeekly:
		sub.AlertFrequency = req.Frequency
	default:
		writeError(w, http.StatusBadRequest, "frequency must be instant, daily or weekly")
		return
	}

	if req.MinConfidence != nil {
		if *req.MinConfidence < 0 || *req.MinConfidence > 1 {
			writeError(w, http.StatusBadRequest, "min_confidence must be between 0 and 1")
			return
		}
		sub.MinConfidence = *req.MinConfidence
	}

	for _, c := range req.Categories {
		if !slices.Contains(database.Categories, c) {
			writeError(w, http.StatusBadRequest, "unknown category: "+c)
			return
		}
		if !slices.Contains(sub.Categories, c) {
			sub.Categories = append(sub.Categories, c)
		}
	}

	err := s.deps.Store.CreateSubscriber(r.Context(), sub)
	if errors.Is(err, database.ErrDuplicate) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "already subscribed"})
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	if s.deps.Mailer != nil {
		s.tasks.Go("welcome-email", func(ctx context.Context) error {
			return alerts.SendWelcome(ctx, s.deps.Mailer, s.config.SiteURL, sub)
		})
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "subscribed"})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := s.deps.Store.Unsubscribe(r.Context(), token); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "unsubscribed"})
}

// handleRSS generates and serves the RSS feed
func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	articles, err := s.deps.Store.GetRecentArticles(r.Context(), rssItemLimit)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	feed, err := GenerateRSSFeed(articles, s.config, s.now())
	if err != nil {
		s.logger.Error("failed to generate feed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate feed")
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=900")
	w.Write([]byte(feed))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.deps.Health.Run(r.Context())

	status := http.StatusOK
	if report.Status == health.StatusError {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// normalizeEmail trims and lowercases an address and reports whether it is
// a plain address without a display name, with a dotted domain.
func normalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return email, false
	}
	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return email, false
	}
	return email, true
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
