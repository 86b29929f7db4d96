package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

const SheetName = "Promotions"

// Columns is the fixed sheet column order.
var Columns = []string{
	"website",
	"page_url",
	"business_name",
	"google_reviews",
	"service_name",
	"promo_description",
	"category",
	"contact",
	"location",
	"offer_details",
	"ad_title",
	"ad_text",
	"new_or_updated",
	"date_scraped",
}

// cell limit is 32767 characters
const maxCellLen = 32000

func rowValues(p entity.TaggedPromotion) []any {
	reviews := ""
	if p.GoogleReviews != nil {
		reviews = strconv.FormatFloat(*p.GoogleReviews, 'f', -1, 64)
	}
	return []any{
		p.Website,
		p.PageURL,
		p.BusinessName,
		reviews,
		p.ServiceName,
		truncate(p.PromoDescription, maxCellLen),
		p.Category,
		p.Contact,
		p.Location,
		truncate(p.RawText, maxCellLen),
		p.AdTitle,
		truncate(p.AdText, maxCellLen),
		string(p.NewOrUpdated),
		p.DateScraped(),
	}
}

// BuildWorkbook returns an XLSX workbook (as bytes) with one row per promotion.
func BuildWorkbook(promos []entity.TaggedPromotion) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(SheetName); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(SheetName)
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, err
		}
	}
	for r, p := range promos {
		for c, v := range rowValues(p) {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return nil, err
			}
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(SheetName, "A", "C", 24)
	_ = f.SetColWidth(SheetName, "E", "E", 24)
	_ = f.SetColWidth(SheetName, "F", "F", 60) // description
	_ = f.SetColWidth(SheetName, "J", "J", 60) // offer details
	_ = f.SetColWidth(SheetName, "M", "N", 16)
	_ = f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
