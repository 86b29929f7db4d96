// Package serpapi reads Google AI Overview answers and paid ads through SerpAPI.
package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/promo-tracker/internal/common"
)

var ErrNoOverview = errors.New("no overview text in search response")

type Config struct {
	APIKey   string
	BaseURL  string // default https://serpapi.com/search
	Location string // e.g. "Edmonton, AB, Canada"
	Timeout  time.Duration
}

// Overview is the text and business details of one search.
type Overview struct {
	Query         string
	Text          string
	Source        string // ai_overview | answer_box | knowledge_graph | organic_results
	BusinessName  string
	GoogleReviews *float64
	Address       string
	Website       string
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, client *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://serpapi.com/search"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Client{cfg: cfg, http: client, logger: logger}
}

// SearchQuery appends the city and country of the configured location.
func (c *Client) SearchQuery(business string) string {
	parts := strings.Split(c.cfg.Location, ",")
	var extra []string
	if city := strings.TrimSpace(parts[0]); city != "" {
		extra = append(extra, city)
	}
	if len(parts) > 1 {
		if country := strings.TrimSpace(parts[len(parts)-1]); country != "" {
			extra = append(extra, country)
		}
	}
	return strings.TrimSpace(business + " " + strings.Join(extra, " "))
}

// Overview searches for business. ErrNoOverview means the response carried no usable text.
func (c *Client) Overview(ctx context.Context, business string) (Overview, error) {
	start := time.Now()
	query := c.SearchQuery(business)
	data, reqID, err := c.search(ctx, query)
	if err != nil {
		return Overview{}, err
	}

	ov := data.overview()
	ov.Query = query
	if ov.Text == "" {
		c.logger.Warn("serpapi.search.no_overview", "req_id", reqID, "query", query,
			"elapsed_ms", time.Since(start).Milliseconds())
		return ov, ErrNoOverview
	}
	c.logger.Info("serpapi.search.ok", "req_id", reqID, "source", ov.Source, "chars", len(ov.Text),
		"elapsed_ms", time.Since(start).Milliseconds())
	return ov, nil
}

// search runs one Google search through SerpAPI and decodes the response.
func (c *Client) search(ctx context.Context, query string) (searchResponse, string, error) {
	reqID := uuid.NewString()
	if c.cfg.APIKey == "" {
		return searchResponse{}, reqID, common.NewAppError("CONFIG_ERROR", "SERPAPI_KEY is not set", common.ErrPermanent)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", c.cfg.APIKey)
	params.Set("engine", "google")
	params.Set("hl", "en")
	params.Set("gl", "ca")

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return searchResponse{}, reqID, err
	}

	c.logger.Info("serpapi.search.start", "req_id", reqID, "query", query)
	resp, err := c.http.Do(req)
	if err != nil {
		return searchResponse{}, reqID, fmt.Errorf("%w: %v", common.ErrTransient, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return searchResponse{}, reqID, fmt.Errorf("%w: %v", common.ErrTransient, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("serpapi.search.http_error", "req_id", reqID, "status", resp.StatusCode, "body", truncate(string(body), 500))
		kind := common.ErrPermanent
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			kind = common.ErrTransient
		}
		return searchResponse{}, reqID, fmt.Errorf("%w: serpapi status %d: %s", kind, resp.StatusCode, errorMessage(body))
	}

	var data searchResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return searchResponse{}, reqID, fmt.Errorf("%w: decode serpapi response: %v", common.ErrPermanent, err)
	}
	return data, reqID, nil
}

func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return truncate(string(body), 200)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type searchResponse struct {
	AIOverview     json.RawMessage `json:"ai_overview"`
	AnswerBox      json.RawMessage `json:"answer_box"`
	KnowledgeGraph *knowledgeGraph `json:"knowledge_graph"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
	Ads []Ad `json:"ads"`
}

type knowledgeGraph struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Website     string          `json:"website"`
	Address     string          `json:"address"`
	Rating      json.RawMessage `json:"rating"`
}

// textBlock reads the overview shapes SerpAPI uses: a plain string, an
// object with text or answer, or an object with text_blocks snippets.
func textBlock(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Text       string `json:"text"`
		Answer     string `json:"answer"`
		Snippet    string `json:"snippet"`
		TextBlocks []struct {
			Snippet string `json:"snippet"`
		} `json:"text_blocks"`
	}
	if json.Unmarshal(raw, &obj) != nil {
		return ""
	}
	for _, v := range []string{obj.Text, obj.Answer, obj.Snippet} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	var parts []string
	for _, b := range obj.TextBlocks {
		if v := strings.TrimSpace(b.Snippet); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "\n")
}

func (r searchResponse) overview() Overview {
	var ov Overview
	if kg := r.KnowledgeGraph; kg != nil {
		ov.BusinessName = kg.Title
		ov.Website = kg.Website
		ov.Address = kg.Address
		ov.GoogleReviews = parseRating(kg.Rating)
	}
	if ov.BusinessName == "" && len(r.OrganicResults) > 0 {
		ov.BusinessName = r.OrganicResults[0].Title
		ov.Website = r.OrganicResults[0].Link
	}

	if t := textBlock(r.AIOverview); t != "" {
		ov.Text, ov.Source = t, "ai_overview"
		return ov
	}
	if t := textBlock(r.AnswerBox); t != "" {
		ov.Text, ov.Source = t, "answer_box"
		return ov
	}
	if kg := r.KnowledgeGraph; kg != nil && strings.TrimSpace(kg.Description) != "" {
		ov.Text, ov.Source = strings.TrimSpace(kg.Description), "knowledge_graph"
		return ov
	}
	var snippets []string
	for _, o := range r.OrganicResults {
		if len(snippets) == 3 {
			break
		}
		if s := strings.TrimSpace(o.Snippet); s != "" {
			snippets = append(snippets, s)
		}
	}
	if len(snippets) > 0 {
		ov.Text, ov.Source = strings.Join(snippets, " "), "organic_results"
	}
	return ov
}

func parseRating(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return &f
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &v
		}
	}
	return nil
}
