// Package report renders the final console summary of a run.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"bidstorm/internal/auction"
	"bidstorm/internal/stats"
	"bidstorm/internal/verify"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	passStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Render writes the run report. vr may be nil when verification was
// skipped.
func Render(w io.Writer, rep stats.Report, vr *verify.Report) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("bidstorm run report"))

	elapsed := rep.Finished.Sub(rep.Started).Round(10 * time.Millisecond)
	bids := rep.Bids(auction.OpPlaceBid, auction.OpRetryBid)
	fmt.Fprintf(w, "runtime %s | requests %d | bids %d | failed %d\n\n",
		elapsed, rep.TotalRequests, bids, rep.TotalFail)

	renderLatencies(w, rep)
	renderErrors(w, rep)
	renderVerification(w, vr)
}

func renderLatencies(w io.Writer, rep stats.Report) {
	if len(rep.Ops) == 0 {
		fmt.Fprintln(w, "no operations recorded")
		return
	}

	fmt.Fprintln(w, "response times (ms)")
	table := tablewriter.NewWriter(w)
	table.Header("Operation", "Count", "Success", "Mean", "p50", "p95", "p99", "Min", "Max")
	for _, op := range rep.Ops {
		table.Append(
			op.Name,
			fmt.Sprintf("%d", op.Count),
			fmt.Sprintf("%.1f%%", op.SuccessRate*100),
			fmt.Sprintf("%.2f", op.MeanMs),
			fmt.Sprintf("%.2f", op.P50Ms),
			fmt.Sprintf("%.2f", op.P95Ms),
			fmt.Sprintf("%.2f", op.P99Ms),
			fmt.Sprintf("%.2f", op.MinMs),
			fmt.Sprintf("%.2f", op.MaxMs),
		)
	}
	table.Render()
	fmt.Fprintln(w)
}

func renderErrors(w io.Writer, rep stats.Report) {
	if len(rep.Errors) == 0 {
		fmt.Fprintln(w, "no errors")
		fmt.Fprintln(w)
		return
	}

	classes := make([]string, 0, len(rep.Errors))
	for class := range rep.Errors {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	fmt.Fprintln(w, "errors")
	table := tablewriter.NewWriter(w)
	table.Header("Class", "Count")
	for _, class := range classes {
		table.Append(class, fmt.Sprintf("%d", rep.Errors[class]))
	}
	table.Render()
	fmt.Fprintln(w)
}

func renderVerification(w io.Writer, vr *verify.Report) {
	if vr == nil {
		fmt.Fprintln(w, "verification skipped")
		return
	}

	fmt.Fprintf(w, "no-overselling verification (%d bids logged, %s)\n",
		vr.TotalBids, vr.Elapsed.Round(10 * time.Millisecond))

	table := tablewriter.NewWriter(w)
	table.Header("Product", "K", "Bidders", "Rank size", "Top-K", "Status", "Detail")
	for _, res := range vr.Results {
		status := "PASS"
		if !res.Pass {
			status = "FAIL"
		}
		table.Append(
			res.ProductID,
			fmt.Sprintf("%d", res.K),
			fmt.Sprintf("%d", res.DistinctBidders),
			fmt.Sprintf("%d", res.Cardinality),
			fmt.Sprintf("%d", len(res.TopK)),
			status,
			res.Detail,
		)
	}
	table.Render()

	for _, res := range vr.Results {
		for _, warning := range res.Warnings {
			fmt.Fprintln(w, warnStyle.Render("warn: "+res.ProductID+": "+warning))
		}
	}

	fmt.Fprintln(w)
	if vr.OK() {
		fmt.Fprintln(w, passStyle.Render("VERIFICATION PASSED: no overselling detected"))
	} else {
		fmt.Fprintln(w, failStyle.Render("VERIFICATION FAILED"))
	}
}
