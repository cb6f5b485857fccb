package scraper

import (
	"sync"
	"time"
)

// ProgressStatus represents the current status of a scrape run
type ProgressStatus string

const (
	StatusIdle      ProgressStatus = "idle"
	StatusScraping  ProgressStatus = "scraping"
	StatusCompleted ProgressStatus = "completed"
	StatusFailed    ProgressStatus = "failed"
)

// ProgressUpdate is a snapshot of a scrape run
type ProgressUpdate struct {
	Status        ProgressStatus `json:"status"`
	Message       string         `json:"message"`
	CurrentFeed   int            `json:"currentFeed"`
	TotalFeeds    int            `json:"totalFeeds"`
	ArticlesAdded int            `json:"articlesAdded"`
	Timestamp     time.Time      `json:"timestamp"`
}

// ProgressTracker tracks the progress of the running scrape, if any
type ProgressTracker struct {
	mu      sync.RWMutex
	current ProgressUpdate
	active  bool
}

// NewProgressTracker creates an idle tracker
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		current: ProgressUpdate{
			Status:    StatusIdle,
			Timestamp: time.Now(),
		},
	}
}

// Begin marks a run as started. It returns false when another run is already active.
func (pt *ProgressTracker) Begin(totalFeeds int) bool {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if pt.active {
		return false
	}
	pt.active = true
	pt.current = ProgressUpdate{
		Status:     StatusScraping,
		Message:    "starting",
		TotalFeeds: totalFeeds,
		Timestamp:  time.Now(),
	}
	return true
}

// UpdateProgress records which feed is being processed
func (pt *ProgressTracker) UpdateProgress(current int, message string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.current.CurrentFeed = current
	pt.current.Message = message
	pt.current.Timestamp = time.Now()
}

// IncrementArticlesAdded increments the count of articles successfully added
func (pt *ProgressTracker) IncrementArticlesAdded() {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.current.ArticlesAdded++
	pt.current.Timestamp = time.Now()
}

// Finish ends the run with a final status
func (pt *ProgressTracker) Finish(status ProgressStatus, message string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.active = false
	pt.current.Status = status
	pt.current.Message = message
	pt.current.Timestamp = time.Now()
}

// GetCurrent returns the current progress
func (pt *ProgressTracker) GetCurrent() ProgressUpdate {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.current
}

// IsActive returns whether a run is in progress
func (pt *ProgressTracker) IsActive() bool {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.active
}
