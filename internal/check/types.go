// Package check implements the bulk allotment-check orchestrator: the
// per-BOID state machine that drives the remote CDSC result form through an
// injected-script rendering surface, solves its captcha, and classifies the
// outcome.
package check

import (
	"regexp"
	"time"
)

// Status is the terminal classification of a single BOID check.
type Status string

const (
	StatusAllotted     Status = "allotted"
	StatusNotAllotted  Status = "not-allotted"
	StatusCaptchaError Status = "captcha-error"
	StatusError        Status = "error"
	StatusSkipped      Status = "skipped"
)

// Target is one BOID to check. Immutable for the duration of a run.
type Target struct {
	BOID  string `yaml:"boid" json:"boid"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
}

// Result is the terminal outcome for one target. Appended exactly once per
// target per run, in target order.
type Result struct {
	BOID        string    `json:"boid"`
	Label       string    `json:"label,omitempty"`
	Status      Status    `json:"status"`
	ShareQty    int       `json:"share_qty"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Summary aggregates a finished run.
type Summary struct {
	Total         int `json:"total"`
	Allotted      int `json:"allotted"`
	NotAllotted   int `json:"not_allotted"`
	Skipped       int `json:"skipped"`
	CaptchaErrors int `json:"captcha_errors"`
	Errors        int `json:"errors"`
	TotalShares   int `json:"total_shares"`
}

// Add folds one result into the summary.
func (s *Summary) Add(r Result) {
	s.Total++
	switch r.Status {
	case StatusAllotted:
		s.Allotted++
		s.TotalShares += r.ShareQty
	case StatusNotAllotted:
		s.NotAllotted++
	case StatusSkipped:
		s.Skipped++
	case StatusCaptchaError:
		s.CaptchaErrors++
	default:
		s.Errors++
	}
}

// CaptchaImage is the extracted captcha crossing the surface boundary as an
// opaque blob with an explicit MIME type.
type CaptchaImage struct {
	BOID     string
	Data     []byte
	MimeType string
}

// CaptchaSource records how a captcha attempt was answered.
type CaptchaSource string

const (
	SourceAutomated CaptchaSource = "automated"
	SourceManual    CaptchaSource = "manual"
	SourceSkipped   CaptchaSource = "skipped"
)

// CaptchaAttempt is transient bookkeeping for one solve attempt. Never
// persisted.
type CaptchaAttempt struct {
	BOID       string
	Attempt    int
	Image      CaptchaImage
	Recognized string
	Source     CaptchaSource
}

// boidPattern: exactly 16 digits, CDSC prefix "13".
var boidPattern = regexp.MustCompile(`^13\d{14}$`)

// ValidBOID reports whether s is a well-formed CDSC BOID. The orchestrator
// assumes its inputs already passed this check; the CLI layer enforces it.
func ValidBOID(s string) bool {
	return boidPattern.MatchString(s)
}
