package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/tkilaker/dronewire/internal/database"
)

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Store.GetStats(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAdminListFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := s.deps.Store.ListFeeds(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if feeds == nil {
		feeds = []*database.Feed{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": feeds})
}

type createFeedRequest struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
}

// handleAdminCreateFeed registers a new RSS source
func (s *Server) handleAdminCreateFeed(w http.ResponseWriter, r *http.Request) {
	var req createFeedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.URL = strings.TrimSpace(req.URL)
	if req.Name == "" || req.URL == "" {
		writeError(w, http.StatusBadRequest, "name and url are required")
		return
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeError(w, http.StatusBadRequest, "url must be an absolute http(s) URL")
		return
	}

	feed := &database.Feed{
		Name:     req.Name,
		URL:      u.String(),
		Category: database.NormalizeCategory(req.Category),
		Active:   true,
	}
	err = s.deps.Store.CreateFeed(r.Context(), feed)
	if errors.Is(err, database.ErrDuplicate) {
		writeError(w, http.StatusConflict, "feed already registered")
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.logger.Info("feed registered", "feed", feed.Name, "url", feed.URL)
	writeJSON(w, http.StatusCreated, feed)
}

// handleScrapeProgress reports the state of the current or last scrape
func (s *Server) handleScrapeProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Scraper.Progress().GetCurrent())
}
