package scan

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/wafwatch/wafwatch/pkg/alert"
	"github.com/wafwatch/wafwatch/pkg/audit"
)

// WriteReport prints scan results in a human-readable form for the
// scan CLI command.
func WriteReport(w io.Writer, events []audit.Event) {
	bold := color.New(color.Bold)
	yellow := color.New(color.FgYellow)

	if len(events) == 0 {
		fmt.Fprintln(w, "no matching changes found")
		return
	}

	yellow.Fprintf(w, "found %d matching changes\n", len(events))
	for _, e := range events {
		msg := alert.Format(e)
		fmt.Fprintln(w)
		bold.Fprintln(w, msg.Subject)
		fmt.Fprintln(w, msg.Body)
	}
}
