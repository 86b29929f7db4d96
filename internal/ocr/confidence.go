package ocr

import (
	"regexp"
	"strings"
)

var (
	rePercent = regexp.MustCompile(`\d{1,2}\s*%`)
	reMoney   = regexp.MustCompile(`\$\s*\d+`)
	reExpiry  = regexp.MustCompile(`(?:expires?|expiry|valid until|ends)\b`)
	reOffer   = regexp.MustCompile(`\b(?:off|save|free|coupon|special)\b`)
)

// naive confidence from how much the text looks like an offer
func heuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2)
	if rePercent.MatchString(txtL) || reMoney.MatchString(txtL) {
		score += 0.3
	}
	if reOffer.MatchString(txtL) {
		score += 0.2
	}
	if reExpiry.MatchString(txtL) {
		score += 0.15
	}
	if len(txt) > 80 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
