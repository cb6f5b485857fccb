package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	samBaseURL    = "https://api.sam.gov/opportunities/v2/search"
	samDateLayout = "01/02/2006"
	samPageLimit  = 100
	// award notices only
	samAwardType = "a"
)

// Notice is one award notice as returned by the SAM.gov opportunities API
type Notice struct {
	NoticeID           string `json:"noticeId"`
	Title              string `json:"title"`
	SolicitationNumber string `json:"solicitationNumber"`
	FullParentPathName string `json:"fullParentPathName"`
	PostedDate         string `json:"postedDate"`
	Type               string `json:"type"`
	Description        string `json:"description"`
	UILink             string `json:"uiLink"`
	Award              *Award `json:"award"`
}

// Award holds the award details of a notice. Amount arrives as a string or a
// number depending on the record.
type Award struct {
	Date   string    `json:"date"`
	Number string    `json:"number"`
	Amount RawAmount `json:"amount"`
	Awardee struct {
		Name string `json:"name"`
	} `json:"awardee"`
}

// RawAmount keeps an award amount as text, whether it was sent as a JSON
// string like "$1,250,000.00" or as a bare number.
type RawAmount string

// UnmarshalJSON implements json.Unmarshaler
func (a *RawAmount) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = RawAmount(s)
		return nil
	}
	*a = RawAmount(b)
	return nil
}

type searchResponse struct {
	TotalRecords      int      `json:"totalRecords"`
	OpportunitiesData []Notice `json:"opportunitiesData"`
}

// Client queries the SAM.gov opportunities API
type Client struct {
	baseURL    string
	apiKey     string
	deptCode   string
	httpClient *http.Client
}

// NewClient creates a SAM.gov client. An empty baseURL uses the public endpoint.
func NewClient(baseURL, apiKey, deptCode string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = samBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		deptCode:   deptCode,
		httpClient: httpClient,
	}
}

// Search returns award notices posted between from and to, inclusive.
func (c *Client) Search(ctx context.Context, from, to time.Time) ([]Notice, error) {
	if c.apiKey == "" {
		return nil, errors.New("SAM_API_KEY not configured")
	}

	var all []Notice
	for offset := 0; ; offset += samPageLimit {
		page, total, err := c.searchPage(ctx, from, to, offset)
		if err != nil {
			return all, err
		}
		all = append(all, page...)
		if len(page) < samPageLimit || len(all) >= total {
			return all, nil
		}
	}
}

func (c *Client) searchPage(ctx context.Context, from, to time.Time, offset int) ([]Notice, int, error) {
	params := url.Values{}
	params.Set("postedFrom", from.Format(samDateLayout))
	params.Set("postedTo", to.Format(samDateLayout))
	params.Set("ptype", samAwardType)
	params.Set("limit", strconv.Itoa(samPageLimit))
	params.Set("offset", strconv.Itoa(offset))
	if c.deptCode != "" {
		params.Set("organizationCode", c.deptCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the request URL is left out of the message
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, 0, fmt.Errorf("sam.gov request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, 0, fmt.Errorf("sam.gov error %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("failed to decode sam.gov response: %w", err)
	}
	return parsed.OpportunitiesData, parsed.TotalRecords, nil
}
