package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"ipocheck/internal/check"
)

var (
	allottedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	notStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	skipStyle     = lipgloss.NewStyle().Faint(true)
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// ResultLine renders one progress line for a finished target.
func ResultLine(r check.Result) string {
	name := r.BOID
	if r.Label != "" {
		name = fmt.Sprintf("%s (%s)", r.BOID, r.Label)
	}

	switch r.Status {
	case check.StatusAllotted:
		return fmt.Sprintf("%s %s", name, allottedStyle.Render(fmt.Sprintf("allotted, %d shares", r.ShareQty)))
	case check.StatusNotAllotted:
		return fmt.Sprintf("%s %s", name, notStyle.Render("not allotted"))
	case check.StatusSkipped:
		return fmt.Sprintf("%s %s", name, skipStyle.Render("skipped"))
	case check.StatusCaptchaError:
		return fmt.Sprintf("%s %s", name, errStyle.Render("captcha failed: "+r.ErrorDetail))
	default:
		return fmt.Sprintf("%s %s", name, errStyle.Render("error: "+r.ErrorDetail))
	}
}
