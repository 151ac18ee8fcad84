package commands

import (
	"SupplyRun/internal/cli/lists"
	"fmt"
	"io"
	"time"
)

const pendingLabel = "Pending sync"

func printRecords(w io.Writer, recs []lists.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No lists yet")
		return
	}
	for _, r := range recs {
		fmt.Fprintf(w, "%-40s %s\n", r.Title, createdLabel(r))
	}
}

func createdLabel(r lists.Record) string {
	if r.Pending() {
		return pendingLabel
	}
	return r.CreatedAt.Local().Format("2006-01-02 15:04")
}

func printCachedHeader(w io.Writer, savedAt time.Time) {
	fmt.Fprintf(w, "(cached %s, backend unreachable)\n", savedAt.Local().Format(time.DateTime))
}
