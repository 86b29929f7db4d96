package serpapi

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultAdLimit is how many promotional ads are kept per business.
const DefaultAdLimit = 2

// Ad is one paid result from the Google search page.
type Ad struct {
	Position      int    `json:"position"`
	Title         string `json:"title"`
	Snippet       string `json:"snippet"`
	Description   string `json:"description"`
	Link          string `json:"link"`
	DisplayedLink string `json:"displayed_link"`
}

// Text is the ad copy: title, snippet and description joined by spaces.
func (a Ad) Text() string {
	var parts []string
	for _, s := range []string{a.Title, a.Snippet, a.Description} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Body is the ad copy without the headline.
func (a Ad) Body() string {
	return strings.TrimSpace(strings.Join(strings.Fields(a.Snippet+" "+a.Description), " "))
}

// PromoAds searches for business and keeps at most limit promotional ads,
// most promotional first within each duplicate group.
func (c *Client) PromoAds(ctx context.Context, business string, limit int) ([]Ad, error) {
	if limit <= 0 {
		limit = DefaultAdLimit
	}
	start := time.Now()
	query := c.SearchQuery(business)
	data, reqID, err := c.search(ctx, query)
	if err != nil {
		return nil, err
	}
	kept := SelectPromoAds(data.Ads, business, limit)
	c.logger.Info("serpapi.ads.ok", "req_id", reqID, "query", query,
		"found", len(data.Ads), "kept", len(kept), "elapsed_ms", time.Since(start).Milliseconds())
	return kept, nil
}

// SelectPromoAds filters to promotional ads, drops duplicates and truncates to limit.
func SelectPromoAds(ads []Ad, business string, limit int) []Ad {
	var promo []Ad
	for _, a := range ads {
		if HasPromoContent(a, business) {
			promo = append(promo, a)
		}
	}
	out := DedupAds(promo)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

var (
	discountSymbols  = []string{"$", "%", "off", "save", "discount", "deal"}
	promoWords       = []string{"special", "promo", "promotion", "coupon", "rebate", "bonus"}
	freeWords        = []string{"free", "complimentary"}
	limitedTimeWords = []string{"sale", "limited time", "special offer"}
	strongWords      = []string{"sale", "offer", "save", "free", "limited", "special offer"}
	locationWords    = []string{"edmonton", "canada", "alberta", "location", "address", "contact", "phone"}
)

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// HasPromoContent reports whether the ad advertises an offer. Ads made only
// of the business name and location words are not promotional.
func HasPromoContent(a Ad, business string) bool {
	text := strings.ToLower(a.Text())
	if text == "" {
		return false
	}
	if business = strings.ToLower(strings.TrimSpace(business)); business != "" {
		allowed := map[string]bool{}
		for _, w := range strings.Fields(business) {
			allowed[w] = true
		}
		for _, w := range locationWords {
			allowed[w] = true
		}
		informational := true
		for _, w := range strings.Fields(text) {
			if !allowed[w] {
				informational = false
				break
			}
		}
		if informational {
			return false
		}
	}
	return containsAny(text, discountSymbols) ||
		containsAny(text, promoWords) ||
		containsAny(text, freeWords) ||
		containsAny(text, limitedTimeWords) ||
		CouponCode(text) != ""
}

var (
	reUseCode     = regexp.MustCompile(`(?i)(?:use|enter|apply)[:\s]+(?:promo[:\s]+)?(?:code|coupon)[:\s]+([A-Z0-9]{3,})(?:\s|$|[.,;!?])`)
	reColonCode   = regexp.MustCompile(`(?i)(?:code|coupon):\s+([A-Z0-9]{3,})(?:\s|$|[.,;!?])`)
	reLetterDigit = regexp.MustCompile(`(?i)\b([A-Z]{2,}\d{2,})\b`)

	notCodes = map[string]bool{
		"CODE": true, "COUPON": true, "PROMO": true, "USE": true, "ENTER": true, "APPLY": true,
		"MENTION": true, "MENTIONED": true, "AVAILABLE": true, "CHECKOUT": true, "DISCOUNT": true,
		"SAVE": true, "OFF": true, "SPECIAL": true, "OFFER": true, "HERE": true, "FOR": true,
		"WITH": true, "THE": true, "AND": true, "OR": true, "AT": true, "ON": true, "IN": true,
	}
)

// CouponCode finds a coupon code in text, upper-cased, or "" when there is none.
// "use code X" wins over "code: X", which wins over a bare token like SAVE20.
func CouponCode(text string) string {
	for _, re := range []*regexp.Regexp{reUseCode, reColonCode, reLetterDigit} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			code := strings.ToUpper(m[1])
			if len(code) >= 3 && !notCodes[code] {
				return code
			}
		}
	}
	return ""
}

var (
	reDollar  = regexp.MustCompile(`\$(\d+(?:\.\d+)?)`)
	rePercent = regexp.MustCompile(`(\d+)%`)
	reFree    = regexp.MustCompile(`(?i)\bfree\b`)
	reComp    = regexp.MustCompile(`(?i)\bcomplimentary\b`)
)

// DiscountValue returns the largest dollar amount, else the largest
// percentage, else "Free" or "Complimentary", else "".
func DiscountValue(text string) string {
	if ms := reDollar.FindAllStringSubmatch(text, -1); len(ms) > 0 {
		best := -1.0
		for _, m := range ms {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > best {
				best = v
			}
		}
		if best >= 0 {
			return "$" + strconv.FormatFloat(best, 'f', -1, 64)
		}
	}
	if ms := rePercent.FindAllStringSubmatch(text, -1); len(ms) > 0 {
		best := -1
		for _, m := range ms {
			if v, err := strconv.Atoi(m[1]); err == nil && v > best {
				best = v
			}
		}
		if best >= 0 {
			return strconv.Itoa(best) + "%"
		}
	}
	if reFree.MatchString(text) {
		return "Free"
	}
	if reComp.MatchString(text) {
		return "Complimentary"
	}
	return ""
}

var discountPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\$\d+(?:\.\d+)?\s+off`),
	regexp.MustCompile(`(?i)\d+%\s+off`),
	regexp.MustCompile(`(?i)save\s+\$\d+(?:\.\d+)?`),
	regexp.MustCompile(`(?i)save\s+\d+%`),
	regexp.MustCompile(`(?i)\$\d+(?:\.\d+)?\s+discount`),
	regexp.MustCompile(`(?i)\d+%\s+discount`),
	regexp.MustCompile(`(?i)free\s+\w+`),
	regexp.MustCompile(`(?i)complimentary\s+\w+`),
}

func discountPhrase(text string) string {
	for _, re := range discountPhrases {
		if m := re.FindString(text); m != "" {
			return strings.ToLower(m)
		}
	}
	return ""
}

// PromoScore ranks how promotional an ad is: dollar or percent amount
// (free counts 50), 30 for a coupon code, 10 per strong keyword.
func PromoScore(a Ad) int {
	text := strings.ToLower(a.Text())
	score := 0
	switch v := DiscountValue(text); {
	case strings.HasPrefix(v, "$"):
		f, _ := strconv.ParseFloat(v[1:], 64)
		score += int(f)
	case strings.HasSuffix(v, "%"):
		n, _ := strconv.Atoi(strings.TrimSuffix(v, "%"))
		score += n
	case v != "":
		score += 50
	}
	if CouponCode(text) != "" {
		score += 30
	}
	for _, w := range strongWords {
		if strings.Contains(text, w) {
			score += 10
		}
	}
	return score
}

// DedupAds groups ads with identical copy or the same discount phrase.
// Ads outside any group keep their order; each group then contributes its
// two highest-scoring ads.
func DedupAds(ads []Ad) []Ad {
	if len(ads) == 0 {
		return nil
	}
	textKey := make([]string, len(ads))
	var textOrder, phraseOrder []string
	byText := map[string][]int{}
	byPhrase := map[string][]int{}
	for i, a := range ads {
		k := strings.Join(strings.Fields(strings.ToLower(a.Text())), " ")
		textKey[i] = k
		if _, ok := byText[k]; !ok {
			textOrder = append(textOrder, k)
		}
		byText[k] = append(byText[k], i)

		if p := discountPhrase(a.Text()); p != "" {
			if _, ok := byPhrase[p]; !ok {
				phraseOrder = append(phraseOrder, p)
			}
			byPhrase[p] = append(byPhrase[p], i)
		}
	}

	var groups [][]int
	for _, k := range textOrder {
		if len(byText[k]) > 1 {
			groups = append(groups, byText[k])
		}
	}
	for _, p := range phraseOrder {
		g := byPhrase[p]
		if len(g) < 2 {
			continue
		}
		// a phrase group inside a single identical-copy group adds nothing
		keys := map[string]bool{}
		for _, i := range g {
			keys[textKey[i]] = true
		}
		if len(keys) > 1 {
			groups = append(groups, g)
		}
	}

	grouped := map[int]bool{}
	for _, g := range groups {
		for _, i := range g {
			grouped[i] = true
		}
	}
	seen := map[int]bool{}
	var out []Ad
	for i, a := range ads {
		if !grouped[i] {
			seen[i] = true
			out = append(out, a)
		}
	}
	for _, g := range groups {
		ranked := append([]int(nil), g...)
		sort.SliceStable(ranked, func(x, y int) bool { return PromoScore(ads[ranked[x]]) > PromoScore(ads[ranked[y]]) })
		if len(ranked) > 2 {
			ranked = ranked[:2]
		}
		for _, i := range ranked {
			if !seen[i] {
				seen[i] = true
				out = append(out, ads[i])
			}
		}
	}
	return out
}
