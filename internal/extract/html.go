package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/joseph-ayodele/promo-tracker/constants"
)

// blockSelector matches generic promotion containers; site-specific
// selectors are deliberately absent.
const blockSelector = `[class*="promo"], [class*="offer"], [class*="coupon"], [class*="special"], [class*="deal"], [id*="promo"], [id*="offer"], [id*="coupon"], article, section`

const (
	minBlockLen = 20
	maxBlockLen = 4000
)

var (
	reWS        = regexp.MustCompile(`[ \t\f\v\r]+`)
	reBlankRuns = regexp.MustCompile(`\n{3,}`)
	reMDHeading = regexp.MustCompile(`(?m)^#{1,6}\s`)
	reMDSyntax  = regexp.MustCompile("!\\[[^\\]]*\\]\\([^)]*\\)|\\[([^\\]]*)\\]\\([^)]*\\)|[*_`>#]")
)

// IsPromoText reports whether s mentions any promotion keyword.
func IsPromoText(s string) bool {
	lower := strings.ToLower(s)
	for _, k := range constants.PromoKeywords {
		if k == "off" || k == "save" || k == "free" || k == "deal" || k == "sale" {
			if containsWord(lower, k) {
				return true
			}
			continue
		}
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// containsWord matches k as a whole word so "office" is not "off".
func containsWord(s, k string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], k)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(k)
		if (start == 0 || !isLetter(s[start-1])) && (end == len(s) || !isLetter(s[end])) {
			return true
		}
		i = start + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// CleanBlockText collapses runs of spaces and blank lines.
func CleanBlockText(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(reWS.ReplaceAllString(l, " "))
	}
	out := reBlankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}

func selectionText(s *goquery.Selection) string {
	s = s.Clone()
	s.Find("script, style, noscript, svg, iframe").Remove()
	s.Find("br, p, div, li, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, el *goquery.Selection) {
		el.AppendHtml("\n")
	})
	return CleanBlockText(s.Text())
}

// HTMLBlocks splits a page into promotion-looking text blocks, innermost
// containers first in document order. When no container qualifies the page
// body is returned as one block.
func HTMLBlocks(html string, maxBlocks int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	doc.Find("script, style, noscript, header, footer, nav").Remove()

	seen := map[string]bool{}
	var blocks []string
	doc.Find(blockSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		// an inner container will be visited on its own
		if s.Find(blockSelector).Length() > 0 {
			return true
		}
		text := selectionText(s)
		if len(text) < minBlockLen || !IsPromoText(text) || seen[text] {
			return true
		}
		seen[text] = true
		blocks = append(blocks, truncateRunes(text, maxBlockLen))
		return maxBlocks <= 0 || len(blocks) < maxBlocks
	})
	if len(blocks) > 0 {
		return blocks, nil
	}

	body := selectionText(doc.Find("body"))
	if len(body) >= minBlockLen && IsPromoText(body) {
		return []string{truncateRunes(body, maxBlockLen)}, nil
	}
	return nil, nil
}

// MarkdownBlocks splits Firecrawl markdown on headings and keeps promotional sections.
func MarkdownBlocks(md string, maxBlocks int) []string {
	idx := reMDHeading.FindAllStringIndex(md, -1)
	var cuts []int
	cuts = append(cuts, 0)
	for _, m := range idx {
		if m[0] > 0 {
			cuts = append(cuts, m[0])
		}
	}
	cuts = append(cuts, len(md))

	seen := map[string]bool{}
	var blocks []string
	for i := 0; i+1 < len(cuts); i++ {
		text := CleanMarkdown(md[cuts[i]:cuts[i+1]])
		if len(text) < minBlockLen || !IsPromoText(text) || seen[text] {
			continue
		}
		seen[text] = true
		blocks = append(blocks, truncateRunes(text, maxBlockLen))
		if maxBlocks > 0 && len(blocks) >= maxBlocks {
			break
		}
	}
	return blocks
}

// CleanMarkdown drops images, keeps link text and strips emphasis markers.
func CleanMarkdown(s string) string {
	s = reMDSyntax.ReplaceAllStringFunc(s, func(m string) string {
		if strings.HasPrefix(m, "[") {
			return reMDSyntax.ReplaceAllString(m, "$1")
		}
		return ""
	})
	return CleanBlockText(s)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// HTMLStrategy reads text from a text block, an HTML fragment or a markdown
// block and rejects text without promotion keywords.
type HTMLStrategy struct{}

func (HTMLStrategy) Kind() string { return constants.HTML }
func (HTMLStrategy) Name() string { return "html" }

func (HTMLStrategy) Extract(_ context.Context, src Source) (string, bool, error) {
	var text string
	switch {
	case strings.TrimSpace(src.Text) != "":
		text = CleanBlockText(src.Text)
	case strings.TrimSpace(src.HTML) != "":
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(src.HTML))
		if err != nil {
			return "", false, err
		}
		text = selectionText(doc.Selection)
	case strings.TrimSpace(src.Markdown) != "":
		text = CleanMarkdown(src.Markdown)
	}
	if text == "" || !IsPromoText(text) {
		return "", false, nil
	}
	return text, true, nil
}
