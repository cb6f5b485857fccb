package database

import (
	"time"

	"github.com/shopspring/decimal"
)

// Article lifecycle states. An article only ever moves from pending to published.
const (
	StatusPendingAI = "pending_ai"
	StatusPublished = "published"
)

// Article categories.
const (
	CategoryCounterUAS   = "counter-uas"
	CategoryDroneWarfare = "drone-warfare"
	CategoryContracts    = "contracts"
	CategoryPolicy       = "policy"
	CategoryGeneral      = "general"
)

// Categories lists every valid article category.
var Categories = []string{
	CategoryCounterUAS,
	CategoryDroneWarfare,
	CategoryContracts,
	CategoryPolicy,
	CategoryGeneral,
}

// NormalizeCategory maps free-form input onto a known category, defaulting to general.
func NormalizeCategory(c string) string {
	for _, known := range Categories {
		if c == known {
			return known
		}
	}
	return CategoryGeneral
}

// Article represents an ingested news item and its AI enrichment
type Article struct {
	ID              int64     `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Excerpt         *string   `db:"excerpt" json:"excerpt,omitempty"`
	Content         *string   `db:"content" json:"content,omitempty"`
	SourceName      string    `db:"source_name" json:"sourceName"`
	SourceURL       string    `db:"source_url" json:"sourceUrl"`
	PublishedAt     time.Time `db:"published_at" json:"publishedAt"`
	ImageURL        *string   `db:"image_url" json:"imageUrl,omitempty"`
	Category        string    `db:"category" json:"category"`
	Status          string    `db:"status" json:"status"`
	Summary         *string   `db:"summary" json:"summary,omitempty"`
	KeyPoints       []string  `db:"key_points" json:"keyPoints"`
	Rationale       *string   `db:"rationale" json:"rationale,omitempty"`
	Confidence      *float64  `db:"confidence" json:"confidence,omitempty"`
	Embedding       []float32 `db:"embedding" json:"-"`
	ReadTimeMinutes *int      `db:"read_time_minutes" json:"readTimeMinutes,omitempty"`
	ViewCount       int64     `db:"view_count" json:"viewCount"`
	AlertSent       bool      `db:"alert_sent" json:"alertSent"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
	Tags            []Tag     `db:"-" json:"tags,omitempty"`
	TagIDs          []int64   `db:"-" json:"-"`
}

// Enrichment is the AI output persisted when an article is published.
type Enrichment struct {
	Summary    string
	KeyPoints  []string
	Rationale  string
	Confidence float64
	Category   string
	Embedding  []float32
}

// Tag categories.
const (
	TagTechnology = "technology"
	TagCompany    = "company"
	TagCountry    = "country"
	TagSystemType = "system-type"
)

// Tag is a named label attached to articles
type Tag struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Slug     string `db:"slug" json:"slug"`
	Category string `db:"category" json:"category"`
}

// Feed is a registered RSS source and its health counters
type Feed struct {
	ID            int64      `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	URL           string     `db:"url" json:"url"`
	Category      string     `db:"category" json:"category"`
	Active        bool       `db:"active" json:"active"`
	ErrorCount    int        `db:"error_count" json:"errorCount"`
	LastError     *string    `db:"last_error" json:"lastError,omitempty"`
	LastCheckedAt *time.Time `db:"last_checked_at" json:"lastCheckedAt,omitempty"`
	LastSuccessAt *time.Time `db:"last_success_at" json:"lastSuccessAt,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
}

// Contract status values.
const (
	ContractActive = "active"
)

// Contract is a government contract award
type Contract struct {
	ID             int64           `db:"id" json:"id"`
	ContractNumber *string         `db:"contract_number" json:"contractNumber,omitempty"`
	Title          string          `db:"title" json:"title"`
	Description    *string         `db:"description" json:"description,omitempty"`
	Company        *string         `db:"company" json:"company,omitempty"`
	Agency         *string         `db:"agency" json:"agency,omitempty"`
	Value          decimal.Decimal `db:"value" json:"value"`
	AwardDate      *time.Time      `db:"award_date" json:"awardDate,omitempty"`
	Category       string          `db:"category" json:"category"`
	Status         string          `db:"status" json:"status"`
	SourceURL      *string         `db:"source_url" json:"sourceUrl,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`
}

// Subscriber states and alert frequencies.
const (
	SubscriberActive       = "active"
	SubscriberUnsubscribed = "unsubscribed"

	FrequencyInstant = "instant"
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
)

// Subscriber is a newsletter recipient with alert preferences
type Subscriber struct {
	ID               int64      `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	Status           string     `db:"status" json:"status"`
	UnsubscribeToken string     `db:"unsubscribe_token" json:"-"`
	AlertsEnabled    bool       `db:"alerts_enabled" json:"alertsEnabled"`
	AlertFrequency   string     `db:"alert_frequency" json:"alertFrequency"`
	MinConfidence    float64    `db:"min_confidence" json:"minConfidence"`
	Categories       []string   `db:"categories" json:"categories"`
	AlertsSent       int        `db:"alerts_sent" json:"alertsSent"`
	AlertsReceived   int        `db:"alerts_received" json:"alertsReceived"`
	LastAlertAt      *time.Time `db:"last_alert_at" json:"lastAlertAt,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
}

// ContactSubmission is an inbound inquiry from the contact form
type ContactSubmission struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Company   *string   `db:"company" json:"company,omitempty"`
	Subject   *string   `db:"subject" json:"subject,omitempty"`
	Message   string    `db:"message" json:"message"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
