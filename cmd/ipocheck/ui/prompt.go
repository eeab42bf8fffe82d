// Package ui holds the terminal-side human interactions: the manual captcha
// prompt and result styling.
package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"ipocheck/internal/solver"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	hintStyle  = lipgloss.NewStyle().Faint(true)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2)
)

// CaptchaPrompter asks the operator to read a captcha in the terminal. The
// image is written to a temp file for viewing; entry auto-submits on the
// fifth character. There is no timeout: the run waits as long as the human
// does.
type CaptchaPrompter struct {
	logger *zap.Logger
}

// NewCaptchaPrompter returns a terminal prompter.
func NewCaptchaPrompter(logger *zap.Logger) *CaptchaPrompter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaptchaPrompter{logger: logger}
}

// Prompt blocks until the human answers, skips, or ctx is cancelled.
func (p *CaptchaPrompter) Prompt(ctx context.Context, req solver.ManualRequest) (string, bool, error) {
	path, err := writeImage(req)
	if err != nil {
		p.logger.Warn("could not write captcha image", zap.Error(err))
	}

	prog := tea.NewProgram(newPromptModel(req, path), tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		if errors.Is(err, tea.ErrProgramKilled) {
			return "", false, context.Canceled
		}
		return "", false, fmt.Errorf("captcha prompt: %w", err)
	}

	m, ok := final.(promptModel)
	if !ok || m.skipped {
		return "", false, nil
	}
	return m.input.Value(), true, nil
}

func writeImage(req solver.ManualRequest) (string, error) {
	ext := ".png"
	if req.MimeType == "image/jpeg" {
		ext = ".jpg"
	}
	path := filepath.Join(os.TempDir(), fmt.Sprintf("ipocheck-captcha-%s-%d%s", req.BOID, req.Attempt, ext))
	if err := os.WriteFile(path, req.Image, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

type promptModel struct {
	req       solver.ManualRequest
	imagePath string
	input     textinput.Model
	skipped   bool
}

func newPromptModel(req solver.ManualRequest, imagePath string) promptModel {
	ti := textinput.New()
	ti.Placeholder = "•••••"
	ti.CharLimit = solver.CaptchaLength
	ti.Width = 10
	ti.Validate = digitsOnly
	ti.Focus()
	return promptModel{req: req, imagePath: imagePath, input: ti}
}

func digitsOnly(s string) error {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("digits only")
		}
	}
	return nil
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEsc:
			m.skipped = true
			return m, tea.Quit
		case tea.KeyEnter:
			if len(m.input.Value()) == solver.CaptchaLength {
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	// Auto-submit the moment the fifth character lands.
	if len(m.input.Value()) == solver.CaptchaLength {
		return m, tea.Quit
	}
	return m, cmd
}

func (m promptModel) View() string {
	header := titleStyle.Render(fmt.Sprintf("Captcha needed for %s", m.req.BOID))
	sub := fmt.Sprintf("automated recognition gave up after attempt %d", m.req.Attempt)

	where := "captcha image unavailable"
	if m.imagePath != "" {
		where = "open " + m.imagePath
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		header,
		hintStyle.Render(sub),
		"",
		where,
		"",
		m.input.View(),
		"",
		hintStyle.Render("type the 5 digits · esc to skip this BOID"),
	)
	return boxStyle.Render(body) + "\n"
}
