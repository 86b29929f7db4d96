package dedup

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"math/bits"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

var reWhitespace = regexp.MustCompile(`\s+`)

// NormalizeText lower-cases and collapses whitespace.
func NormalizeText(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(strings.ToLower(s), " "))
}

// ImageFingerprint is the hex SHA-256 of the image bytes; empty for no bytes.
func ImageFingerprint(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ContentFingerprint hashes the normalized raw text plus the content key.
func ContentFingerprint(c entity.PromotionCandidate) string {
	sum := sha256.Sum256([]byte(NormalizeText(c.RawText) + "\x00" + ContentKey(c)))
	return hex.EncodeToString(sum[:])
}

// ContentKey is the text compared for content similarity:
// normalized service_name + discount_value + category.
func ContentKey(c entity.PromotionCandidate) string {
	return NormalizeText(strings.Join([]string{c.ServiceName, c.DiscountValue, c.Category}, " "))
}

const (
	dhashW = 9
	dhashH = 8
)

// PerceptualHash computes a 64-bit difference hash. ok is false when the
// bytes are not a decodable jpeg/png/gif.
func PerceptualHash(b []byte) (uint64, bool) {
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return 0, false
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < dhashW || h < dhashH {
		return 0, false
	}

	var gray [dhashH][dhashW]float64
	for y := 0; y < dhashH; y++ {
		y0 := bounds.Min.Y + y*h/dhashH
		y1 := bounds.Min.Y + (y+1)*h/dhashH
		for x := 0; x < dhashW; x++ {
			x0 := bounds.Min.X + x*w/dhashW
			x1 := bounds.Min.X + (x+1)*w/dhashW
			gray[y][x] = meanLuma(img, x0, y0, x1, y1)
		}
	}

	var hash uint64
	for y := 0; y < dhashH; y++ {
		for x := 0; x < dhashW-1; x++ {
			hash <<= 1
			if gray[y][x] > gray[y][x+1] {
				hash |= 1
			}
		}
	}
	// an all-zero hash (flat image) carries no identity
	if hash == 0 {
		return 0, false
	}
	return hash, true
}

// meanLuma samples at most 4x4 points of the cell to keep large images cheap.
func meanLuma(img image.Image, x0, y0, x1, y1 int) float64 {
	stepX := max(1, (x1-x0)/4)
	stepY := max(1, (y1-y0)/4)
	var sum float64
	var n int
	for y := y0; y < y1; y += stepY {
		for x := x0; x < x1; x += stepX {
			r, g, b, _ := img.At(x, y).RGBA()
			sum += 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// HammingDistance counts differing bits.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
