package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

const MergedFileName = "merged_promotions.json"

// MarshalCompetitor renders one competitor result as indented JSON.
func MarshalCompetitor(r entity.CompetitorRunResult) ([]byte, error) {
	return json.MarshalIndent(ToCompetitorFile(r), "", "  ")
}

// MarshalMerged renders every promotion of the run in merge order.
func MarshalMerged(promos []entity.TaggedPromotion) ([]byte, error) {
	records := make([]PromotionRecord, 0, len(promos))
	for _, p := range promos {
		records = append(records, ToRecord(p))
	}
	return json.MarshalIndent(records, "", "  ")
}

// writeFileAtomic writes through a temp file in the same directory so
// readers never see a half-written document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func writeJSON(path string, data []byte, err error) error {
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}
