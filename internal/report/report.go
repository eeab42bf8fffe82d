// Package report is the sink for finished check runs: export, terminal
// rendering, and the on-disk run history.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ipocheck/internal/check"
)

// WriteCSV streams results in the export format the original report used:
// BOID,Status,Shares,Timestamp.
func WriteCSV(w io.Writer, results []check.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"BOID", "Status", "Shares", "Timestamp"}); err != nil {
		return err
	}
	for _, r := range results {
		rec := []string{
			r.BOID,
			string(r.Status),
			strconv.Itoa(r.ShareQty),
			r.CompletedAt.Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Markdown renders a run as a markdown document for terminal display.
func Markdown(rep *check.Report) string {
	var b strings.Builder

	title := "Allotment Check"
	if rep.CompanyName != "" {
		title += " — " + rep.CompanyName
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	s := rep.Summary
	fmt.Fprintf(&b, "**%d checked** · %d allotted (%d shares) · %d not allotted",
		s.Total, s.Allotted, s.TotalShares, s.NotAllotted)
	if s.Skipped > 0 {
		fmt.Fprintf(&b, " · %d skipped", s.Skipped)
	}
	if s.CaptchaErrors > 0 {
		fmt.Fprintf(&b, " · %d captcha failures", s.CaptchaErrors)
	}
	if s.Errors > 0 {
		fmt.Fprintf(&b, " · %d errors", s.Errors)
	}
	b.WriteString("\n\n")

	b.WriteString("| BOID | Status | Shares | Detail |\n")
	b.WriteString("|------|--------|--------|--------|\n")
	for _, r := range rep.Results {
		label := r.BOID
		if r.Label != "" {
			label = fmt.Sprintf("%s (%s)", r.BOID, r.Label)
		}
		shares := ""
		if r.Status == check.StatusAllotted {
			shares = strconv.Itoa(r.ShareQty)
		}
		detail := strings.ReplaceAll(r.ErrorDetail, "|", "\\|")
		if len(detail) > 60 {
			detail = detail[:60] + "…"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", label, statusGlyph(r.Status), shares, detail)
	}

	if !rep.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "\n_%s, took %s_\n",
			rep.FinishedAt.Format("2006-01-02 15:04"),
			rep.FinishedAt.Sub(rep.StartedAt).Round(time.Second))
	}
	return b.String()
}

func statusGlyph(s check.Status) string {
	switch s {
	case check.StatusAllotted:
		return "✅ allotted"
	case check.StatusNotAllotted:
		return "❌ not allotted"
	case check.StatusSkipped:
		return "⏭ skipped"
	case check.StatusCaptchaError:
		return "🔁 captcha failed"
	default:
		return "⚠️ error"
	}
}
