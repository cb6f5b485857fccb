package server

import (
	"errors"
	"net/http"

	"github.com/tkilaker/dronewire/internal/scraper"
)

// writeJobResult sends the summary of a batch job. Setup failures are
// reported as 500 alongside whatever partial summary the job produced.
func (s *Server) writeJobResult(w http.ResponseWriter, job string, result any, err error) {
	if err != nil {
		s.logger.Error("cron job failed", "job", job, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  err.Error(),
			"result": result,
		})
		return
	}
	s.logger.Info("cron job finished", "job", job)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCronScrape(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Scraper.Run(r.Context())
	if errors.Is(err, scraper.ErrAlreadyRunning) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJobResult(w, "scrape-rss", result, err)
}

func (s *Server) handleCronProcess(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Processor.Run(r.Context(), queryInt(r, "limit", 0))
	s.writeJobResult(w, "process-ai", result, err)
}

func (s *Server) handleCronContracts(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Contracts.Run(r.Context())
	s.writeJobResult(w, "scrape-contracts", result, err)
}

func (s *Server) handleCronAlerts(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Alerts.Run(r.Context())
	s.writeJobResult(w, "send-alerts", result, err)
}

func (s *Server) handleCronBackfill(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Backfill.Run(r.Context(), queryInt(r, "limit", 0))
	s.writeJobResult(w, "backfill-images", result, err)
}
