package entity

// Competitor is one site to scrape, as read from the competitor list.
type Competitor struct {
	Name    string   `json:"name"`
	Website string   `json:"website"` // bare domain, e.g. "speedy.com"
	Pages   []string `json:"pages"`   // promotion page URLs
	Address string   `json:"address,omitempty"`

	GoogleReviews *float64 `json:"google_reviews,omitempty"`

	// AIOverviewPrimary skips the HTML/OCR path and uses the AI Overview source only.
	AIOverviewPrimary bool `json:"ai_overview_primary,omitempty"`
	UseFirecrawl      bool `json:"use_firecrawl,omitempty"`
	MaxImages         int  `json:"max_images,omitempty"` // 0 = no limit
}
