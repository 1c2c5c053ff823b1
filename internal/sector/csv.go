package sector

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"sectorscope/internal/models"
)

// rankingRow is one line of the exported ranking table.
type rankingRow struct {
	Rank      int    `csv:"rank"`
	Sector    string `csv:"sector"`
	AvgChange string `csv:"avg_change_pct"`
	Symbols   int    `csv:"symbols"`
	Failed    int    `csv:"failed"`
}

// WriteCSV exports a ranked snapshot list as CSV. Unavailable averages
// are written as "NA" rather than a number.
func WriteCSV(w io.Writer, ranked []models.SectorSnapshot) error {
	rows := make([]rankingRow, len(ranked))
	for i, snap := range ranked {
		avg := "NA"
		if snap.Available {
			avg = fmt.Sprintf("%.2f", snap.AvgChangePct)
		}
		failed := 0
		for _, q := range snap.Quotes {
			if !q.Available {
				failed++
			}
		}
		rows[i] = rankingRow{
			Rank:      i + 1,
			Sector:    snap.Name,
			AvgChange: avg,
			Symbols:   len(snap.Quotes),
			Failed:    failed,
		}
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("writing ranking CSV: %w", err)
	}
	return nil
}
