package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	service "github.com/notactuallytreyanastasio/phstats-sub000/internal/app"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/filter"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/types"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable renders entries as an aligned text table followed by a summary
// line.
func writeTable(w io.Writer, res *service.Result, agg filter.Aggregation) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := "RANK\tSONG\t"
	switch agg {
	case filter.ByYear:
		header += "YEAR\t"
	case filter.ByTour:
		header += "TOUR\t"
	}
	header += "PLAYED\tSHOWS\tJAMCHARTS\tJAM RATE\tAVG JIS\tPEAK JIS\tWAR\tWAR/PLAY\t"
	fmt.Fprintln(tw, header)

	for _, e := range res.Entries {
		fmt.Fprintf(tw, "%s\t%s\t", rank(e), e.SongName)
		switch agg {
		case filter.ByYear:
			fmt.Fprintf(tw, "%d\t", e.Key.Year)
		case filter.ByTour:
			fmt.Fprintf(tw, "%s\t", e.Key.TourLabel)
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%.3f\t%.1f\t%.1f\t%.2f\t%.3f\t\n",
			e.Counting.TimesPlayed, e.Counting.ShowsAppeared, e.Counting.JamchartCount,
			e.Rates.JamRate, e.JIS.Avg, e.JIS.Peak, e.WAR.Career, e.WAR.PerPlay)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d entries, %d qualified records, %d dropped rows, snapshot %s\n",
		len(res.Entries), res.QualifiedCount, res.DroppedCount, res.Version)
	return err
}

func rank(e types.Entry) string {
	if e.Rank == 0 {
		return "-"
	}
	return strconv.Itoa(e.Rank)
}
