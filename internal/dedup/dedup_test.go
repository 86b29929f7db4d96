package dedup

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

func structured(raw, service, discount, category string) entity.PromotionCandidate {
	return entity.PromotionCandidate{
		Website: "speedy.com",
		RawText: raw,
		Fields: entity.Fields{
			ServiceName:      service,
			DiscountValue:    discount,
			Category:         category,
			PromoDescription: raw,
		},
	}
}

func fallback(raw string, phash uint64, fp string) entity.PromotionCandidate {
	return entity.PromotionCandidate{
		Website:          "speedy.com",
		RawText:          raw,
		Fields:           entity.Fields{PromoDescription: raw},
		UsedFallback:     true,
		ImagePHash:       phash,
		ImageFingerprint: fp,
	}
}

func TestDeduplicate_ImageFingerprintKeepsFirst(t *testing.T) {
	a := structured("first", "oil change", "$20 off", "oil change")
	a.ImageFingerprint = "abc"
	b := structured("second", "brake pads", "15%", "brakes")
	b.ImageFingerprint = "abc"

	out := Deduplicate([]entity.PromotionCandidate{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, "first", out[0].RawText)
}

func TestDeduplicate_ContentSimilarity(t *testing.T) {
	a := structured("a", "Oil Change", "$20 off", "oil change")
	b := structured("b", "oil  change", "$20 off", "oil change")
	c := structured("c", "oil change", "$25 off", "oil change")
	d := structured("d", "brake service", "$50 off", "brakes")

	out := Deduplicate([]entity.PromotionCandidate{a, b, c, d})
	var raws []string
	for _, o := range out {
		raws = append(raws, o.RawText)
	}
	// "$20" vs "$25" is one edit in a long key, so c folds into a as well.
	assert.Equal(t, []string{"a", "d"}, raws)
}

func TestDeduplicate_ThresholdIsExclusive(t *testing.T) {
	d := New(WithThreshold(1))
	a := structured("a", "oil change", "$20 off", "oil change")
	b := structured("b", "oil change", "$25 off", "oil change")
	assert.Len(t, d.Deduplicate([]entity.PromotionCandidate{a, b}), 2)
}

func TestDeduplicate_Idempotent(t *testing.T) {
	in := []entity.PromotionCandidate{
		structured("a", "oil change", "$20 off", "oil change"),
		structured("b", "oil change", "$20 off", "oil change"),
		structured("c", "battery", "free test", "battery"),
		fallback("banner one", 0xF0F0F0F0F0F0F0F0, "h1"),
		fallback("banner two", 0xF0F0F0F0F0F0F0F1, "h2"),
		fallback("flyer", 0x0F0F0F0F0F0F0F0F, "h3"),
		structured("e", "", "", ""),
	}
	once := Deduplicate(in)
	twice := Deduplicate(once)
	assert.Equal(t, once, twice)
}

func TestDeduplicate_FallbackNearIdenticalImages(t *testing.T) {
	a := fallback("Save big this winter", 0xAAAAAAAAAAAAAAAA, "h1")
	b := fallback("Save big this winter!", 0xAAAAAAAAAAAAAAAB, "h2")

	out := Deduplicate([]entity.PromotionCandidate{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, "h1", out[0].ImageFingerprint)
}

func TestDeduplicate_FallbackFarImagesKept(t *testing.T) {
	a := fallback("one", 0xFFFFFFFF00000000, "h1")
	b := fallback("two", 0x00000000FFFFFFFF, "h2")
	assert.Len(t, Deduplicate([]entity.PromotionCandidate{a, b}), 2)
}

func TestDeduplicate_FallbackWithoutHashNeverFuzzyMerged(t *testing.T) {
	a := fallback("Save $20 on synthetic oil this month", 0, "")
	b := fallback("Save $25 on synthetic oil this month", 0, "")
	assert.Len(t, Deduplicate([]entity.PromotionCandidate{a, b}), 2)
}

func TestDeduplicate_EqualContentFingerprint(t *testing.T) {
	banner := "Save $20 on any synthetic oil change this month"
	a := fallback(banner, 0, "")
	a.PageURL = "https://speedy.com/deals"
	b := fallback("  save $20 on ANY synthetic oil change this month ", 0, "")
	b.PageURL = "https://speedy.com/coupons"
	a.ContentFingerprint = ContentFingerprint(a)
	b.ContentFingerprint = ContentFingerprint(b)
	require.Equal(t, a.ContentFingerprint, b.ContentFingerprint)

	out := Deduplicate([]entity.PromotionCandidate{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, "https://speedy.com/deals", out[0].PageURL)

	// computed when the caller did not set it
	c, e := fallback(banner, 0, ""), fallback(banner, 0, "")
	assert.Len(t, Deduplicate([]entity.PromotionCandidate{c, e}), 1)
}

func TestDeduplicate_FallbackExemptFromStructuredBlanks(t *testing.T) {
	a := fallback("Spring special", 0x1234, "h1")
	b := structured("Spring special on brakes", "", "", "")
	assert.Len(t, Deduplicate([]entity.PromotionCandidate{a, b}), 2)
}

func TestDeduplicate_FallbackStillMatchesByImageIdentity(t *testing.T) {
	a := fallback("Spring special", 0, "same")
	b := structured("Spring special", "oil change", "$10", "oil change")
	b.ImageFingerprint = "same"
	assert.Len(t, Deduplicate([]entity.PromotionCandidate{a, b}), 1)
}

func tagged(business, raw, service string) entity.TaggedPromotion {
	c := structured(raw, service, "$20", "oil change")
	c.BusinessName = business
	return entity.TaggedPromotion{PromotionCandidate: c}
}

func TestMerge_SameBusinessAndService(t *testing.T) {
	first := tagged("Speedy Auto", "Oil change $20 off this month", "oil change")
	first.PageURL = "https://speedy.com/a"
	repeat := tagged("speedy auto", "Oil change $20 off this month!", "Oil Change")
	repeat.PageURL = "https://speedy.com/b"
	other := tagged("Midas", "Oil change $20 off this month", "oil change")
	different := tagged("Speedy Auto", "Brake pads 15% off with free inspection", "oil change")

	out := New().Merge([]entity.TaggedPromotion{first, repeat, other, different})
	require.Len(t, out, 3)
	assert.Equal(t, "https://speedy.com/a", out[0].PageURL)
	assert.Equal(t, "Midas", out[1].BusinessName)
	assert.Equal(t, "Brake pads 15% off with free inspection", out[2].RawText)
}

func TestMerge_NoServiceNameKept(t *testing.T) {
	a := tagged("Speedy Auto", "Spring special", "")
	b := tagged("Speedy Auto", "Spring special", "")
	assert.Len(t, New().Merge([]entity.TaggedPromotion{a, b}), 2)
	assert.Empty(t, New().Merge(nil))
}

func TestDeduplicate_EmptyRawTextPanics(t *testing.T) {
	assert.PanicsWithValue(t, "dedup: candidate 1 (speedy.com ) has empty raw text", func() {
		Deduplicate([]entity.PromotionCandidate{
			structured("ok", "oil change", "$20", "oil change"),
			structured("  ", "oil change", "$20", "oil change"),
		})
	})
}

func encodePNG(t *testing.T, w, h int, shade func(x, y int) uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: shade(x, y)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPerceptualHash(t *testing.T) {
	gradient := func(x, _ int) uint8 { return uint8(255 - x) }
	a := encodePNG(t, 90, 80, gradient)
	b := encodePNG(t, 180, 160, func(x, y int) uint8 { return gradient(x/2, y) })

	ha, ok := PerceptualHash(a)
	require.True(t, ok)
	hb, ok := PerceptualHash(b)
	require.True(t, ok)
	assert.LessOrEqual(t, HammingDistance(ha, hb), DefaultMaxHashDistance)
	assert.NotEqual(t, ImageFingerprint(a), ImageFingerprint(b))

	_, ok = PerceptualHash([]byte("not an image"))
	assert.False(t, ok)

	flat := encodePNG(t, 20, 20, func(int, int) uint8 { return 128 })
	_, ok = PerceptualHash(flat)
	assert.False(t, ok)
}

func TestContentFingerprintIgnoresCaseAndSpacing(t *testing.T) {
	a := structured("Oil  Change $20", "oil change", "$20", "oil change")
	b := structured("oil change $20", "Oil Change", "$20", "oil change")
	assert.Equal(t, ContentFingerprint(a), ContentFingerprint(b))
	assert.Equal(t, "", ImageFingerprint(nil))
}
