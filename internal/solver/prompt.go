package solver

import "context"

// ManualRequest asks a human to read one captcha. The image is the opaque
// blob extracted from the page.
type ManualRequest struct {
	BOID     string
	Attempt  int
	Image    []byte
	MimeType string
}

// Prompter suspends the pipeline until a human answers or skips. There is
// deliberately no timeout here: a person is on the other end, and the only
// way out besides an answer is skipping or cancelling ctx.
//
// ok is false when the human skipped; the orchestrator records that as
// skipped, never as an error. err is reserved for ctx cancellation and
// prompt-transport failures.
type Prompter interface {
	Prompt(ctx context.Context, req ManualRequest) (text string, ok bool, err error)
}

// NoPrompter always skips. Used for unattended runs where escalating to a
// human is impossible.
type NoPrompter struct{}

// Prompt skips immediately.
func (NoPrompter) Prompt(context.Context, ManualRequest) (string, bool, error) {
	return "", false, nil
}
