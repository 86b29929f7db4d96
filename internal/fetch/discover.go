package fetch

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/joseph-ayodele/promo-tracker/constants"
)

// imageAttrs are checked in order; lazy loaders keep the real URL in data-*.
var imageAttrs = []string{"src", "data-src", "data-lazy-src", "data-original", "data-url"}

// ResolveURL makes ref absolute against base. data: URIs, fragments,
// javascript: links and unparsable refs are rejected.
func ResolveURL(base, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return "", false
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if r.IsAbs() {
		if r.Scheme != "http" && r.Scheme != "https" {
			return "", false
		}
		return r.String(), true
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		// protocol-relative refs still work without a base
		if strings.HasPrefix(ref, "//") {
			return "https:" + ref, true
		}
		return "", false
	}
	return b.ResolveReference(r).String(), true
}

// DiscoverImages lists image URLs in document order. max <= 0 means no limit.
func DiscoverImages(doc *goquery.Document, pageURL string, max int) []string {
	seen := map[string]bool{}
	var out []string
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if u, ok := imageSource(s, pageURL); ok && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
		return max <= 0 || len(out) < max
	})
	return out
}

func imageSource(s *goquery.Selection, pageURL string) (string, bool) {
	for _, attr := range imageAttrs {
		if v, ok := s.Attr(attr); ok {
			if u, ok := ResolveURL(pageURL, v); ok {
				return u, true
			}
		}
	}
	if v, ok := s.Attr("srcset"); ok {
		// first candidate, descriptor dropped
		first := strings.TrimSpace(strings.Split(v, ",")[0])
		if f := strings.Fields(first); len(f) > 0 {
			return ResolveURL(pageURL, f[0])
		}
	}
	return "", false
}

// NormalizePDFURL lower-cases, trims and drops a trailing slash so the same
// document linked twice is processed once.
func NormalizePDFURL(u string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(u)), "/")
}

// DiscoverPDFs lists linked PDF documents; extra links (e.g. from Firecrawl)
// are merged in after the anchors.
func DiscoverPDFs(doc *goquery.Document, pageURL string, extra []string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(ref string) {
		u, ok := ResolveURL(pageURL, ref)
		if !ok || !constants.IsPDFURL(u) {
			return
		}
		if key := NormalizePDFURL(u); !seen[key] {
			seen[key] = true
			out = append(out, u)
		}
	}
	if doc != nil {
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			add(s.AttrOr("href", ""))
		})
	}
	for _, l := range extra {
		add(l)
	}
	return out
}

// discoverPage fills the media fields of p from its HTML.
func discoverPage(p *Page, maxImages int, extraLinks []string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.HTML))
	if err != nil {
		return err
	}
	p.ImageURLs = DiscoverImages(doc, p.URL, maxImages)
	p.PDFLinks = DiscoverPDFs(doc, p.URL, extraLinks)
	return nil
}
