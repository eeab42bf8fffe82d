package check

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ipocheck/internal/bridge"
	"ipocheck/internal/solver"
)

// ErrNoTargets is returned when Run is called with an empty target list; no
// session is created.
var ErrNoTargets = errors.New("check: no targets to run")

// timeoutDetail is the recorded error detail when no correlated message
// arrives within the bound.
const timeoutDetail = "Timeout - no response"

// Messenger is the bridge contract the controller drives: one instruction
// out, one correlated message back.
type Messenger interface {
	Inject(ctx context.Context, script string) error
	WaitForMessage(ctx context.Context, expect bridge.Type, boid string, timeout time.Duration) (bridge.Message, error)
}

// Options tunes the per-target loop. Zero values take the defaults below.
type Options struct {
	// MaxAttempts bounds captcha extractions per target before escalating
	// to a human.
	MaxAttempts int
	// ExtractTimeout bounds the wait for CAPTCHA_IMAGE_READY.
	ExtractTimeout time.Duration
	// SubmitTimeout bounds the wait for BULK_CHECK_RESULT.
	SubmitTimeout time.Duration
	// PaceDelay is the fixed sleep between targets. Any positive value
	// satisfies the rate-limiting intent; it never changes outcomes.
	PaceDelay time.Duration
	// CompanySettle is the blocking delay after the fire-and-forget
	// company-selection step, giving the remote UI time to settle.
	CompanySettle time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.ExtractTimeout <= 0 {
		o.ExtractTimeout = 15 * time.Second
	}
	if o.SubmitTimeout <= 0 {
		o.SubmitTimeout = 20 * time.Second
	}
	if o.PaceDelay <= 0 {
		o.PaceDelay = 2 * time.Second
	}
	if o.CompanySettle <= 0 {
		o.CompanySettle = 2 * time.Second
	}
	return o
}

// Report is the finished run handed to the report sink.
type Report struct {
	CompanyName string    `json:"company_name,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Results     []Result  `json:"results"`
	Summary     Summary   `json:"summary"`
}

// Runner owns one check session at a time: the per-target loop, retry
// policy, pacing, and summary. It issues one instruction, suspends until
// exactly one correlated message returns, then issues the next; that
// sequential-await discipline is the only concurrency control the shared
// remote form needs.
type Runner struct {
	msgr     Messenger
	solver   solver.Solver
	prompter solver.Prompter
	opts     Options
	logger   *zap.Logger

	// OnResult, when set, observes each result as it becomes terminal,
	// in target order.
	OnResult func(Result)

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewRunner wires a controller over the given bridge, solver, and manual
// fallback.
func NewRunner(msgr Messenger, sv solver.Solver, pr solver.Prompter, opts Options, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pr == nil {
		pr = solver.NoPrompter{}
	}
	return &Runner{
		msgr:     msgr,
		solver:   sv,
		prompter: pr,
		opts:     opts.withDefaults(),
		logger:   logger,
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

// Run processes every target to exactly one terminal status and returns the
// finished report. A single target's failure never aborts the remaining
// queue; only ctx cancellation stops the run early, in which case the
// partial report accompanies ctx's error.
func (r *Runner) Run(ctx context.Context, targets []Target, companyName string) (*Report, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	report := &Report{
		CompanyName: companyName,
		StartedAt:   r.now(),
	}

	if companyName != "" {
		// No correlation message exists for company selection; inject and
		// block for the settle delay.
		if err := r.msgr.Inject(ctx, SelectCompanyScript(companyName)); err != nil {
			return nil, fmt.Errorf("select company: %w", err)
		}
		if err := r.sleep(ctx, r.opts.CompanySettle); err != nil {
			return report, err
		}
		r.logger.Info("company selected", zap.String("company", companyName))
	}

	for i, t := range targets {
		res, err := r.checkTarget(ctx, t, i == 0)
		if err != nil {
			report.FinishedAt = r.now()
			return report, err
		}

		report.Results = append(report.Results, res)
		report.Summary.Add(res)
		if r.OnResult != nil {
			r.OnResult(res)
		}
		r.logger.Info("target finished",
			zap.String("boid", t.BOID),
			zap.String("status", string(res.Status)),
			zap.Int("shares", res.ShareQty))

		if i < len(targets)-1 {
			if err := r.sleep(ctx, r.opts.PaceDelay); err != nil {
				report.FinishedAt = r.now()
				return report, err
			}
		}
	}

	report.FinishedAt = r.now()
	return report, nil
}

// checkTarget runs the Extracting → Solving → Submitting → Classifying loop
// for one target. The returned error is non-nil only for ctx cancellation;
// every other failure mode becomes a terminal Result.
func (r *Runner) checkTarget(ctx context.Context, t Target, firstTarget bool) (Result, error) {
	var img CaptchaImage

	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		// The form starts with an already-rendered captcha, so the very
		// first attempt of the run skips the refresh.
		refresh := !(firstTarget && attempt == 1)

		extracted, res, err := r.extractCaptcha(ctx, t, refresh)
		if err != nil {
			return Result{}, err
		}
		if res != nil {
			return *res, nil
		}
		img = *extracted

		rec := r.solver.Solve(ctx, img.Data, img.MimeType)
		text := rec.Text
		if !rec.Success || len(text) != solver.CaptchaLength {
			if attempt < r.opts.MaxAttempts {
				// Silent retry: no submission is attempted on a recognition
				// the form would reject anyway.
				r.logger.Debug("recognition unusable, retrying",
					zap.String("boid", t.BOID),
					zap.Int("attempt", attempt))
				continue
			}
			manual, ok, perr := r.prompter.Prompt(ctx, solver.ManualRequest{
				BOID:     t.BOID,
				Attempt:  attempt,
				Image:    img.Data,
				MimeType: img.MimeType,
			})
			if perr != nil {
				return Result{}, perr
			}
			if !ok {
				return r.finish(t, Classification{Status: StatusSkipped}), nil
			}
			text = manual
		}

		res2, err := r.submit(ctx, t, text)
		if err != nil {
			return Result{}, err
		}
		if res2.Status != StatusCaptchaError {
			return res2, nil
		}

		if attempt < r.opts.MaxAttempts {
			r.logger.Debug("captcha rejected, retrying with refresh",
				zap.String("boid", t.BOID),
				zap.Int("attempt", attempt),
				zap.String("detail", res2.ErrorDetail))
			continue
		}

		// Attempts exhausted on a captcha rejection: escalate to a human
		// with the already-extracted image (no further refresh) and accept
		// whatever comes back, even another rejection, as terminal.
		manual, ok, perr := r.prompter.Prompt(ctx, solver.ManualRequest{
			BOID:     t.BOID,
			Attempt:  attempt,
			Image:    img.Data,
			MimeType: img.MimeType,
		})
		if perr != nil {
			return Result{}, perr
		}
		if !ok {
			return r.finish(t, Classification{Status: StatusSkipped}), nil
		}
		return r.submit(ctx, t, manual)
	}

	// Unreachable: every loop path returns or continues within bounds.
	return r.finish(t, Classification{Status: StatusError, Detail: "attempt loop exhausted"}), nil
}

// extractCaptcha injects the extraction instruction and awaits the image.
// Exactly one of the three returns is non-zero: the image, a terminal
// result, or a ctx error.
func (r *Runner) extractCaptcha(ctx context.Context, t Target, refresh bool) (*CaptchaImage, *Result, error) {
	if err := r.msgr.Inject(ctx, ExtractCaptchaScript(t.BOID, refresh)); err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		res := r.finish(t, Classification{Status: StatusError, Detail: fmt.Sprintf("inject extraction: %v", err)})
		return nil, &res, nil
	}

	msg, err := r.msgr.WaitForMessage(ctx, bridge.TypeCaptchaImageReady, t.BOID, r.opts.ExtractTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		res := r.finish(t, Classification{Status: StatusError, Detail: waitErrorDetail(err)})
		return nil, &res, nil
	}

	data, err := base64.StdEncoding.DecodeString(msg.ImageBase64)
	if err != nil || len(data) == 0 {
		res := r.finish(t, Classification{Status: StatusError, Detail: "captcha image decode failed"})
		return nil, &res, nil
	}

	return &CaptchaImage{BOID: t.BOID, Data: data, MimeType: msg.MimeType}, nil, nil
}

// submit injects the submission instruction, awaits the result message, and
// classifies it. The returned error is non-nil only for ctx cancellation.
func (r *Runner) submit(ctx context.Context, t Target, captchaText string) (Result, error) {
	if err := r.msgr.Inject(ctx, SubmitScript(t.BOID, captchaText)); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return r.finish(t, Classification{Status: StatusError, Detail: fmt.Sprintf("inject submission: %v", err)}), nil
	}

	msg, err := r.msgr.WaitForMessage(ctx, bridge.TypeBulkCheckResult, t.BOID, r.opts.SubmitTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return r.finish(t, Classification{Status: StatusError, Detail: waitErrorDetail(err)}), nil
	}

	return r.finish(t, classifyMessage(msg)), nil
}

// classifyMessage honors a surface that classified page-side; otherwise the
// aggregated text is classified here.
func classifyMessage(msg bridge.Message) Classification {
	switch msg.Status {
	case "allotted":
		return Classification{Status: StatusAllotted, ShareQty: msg.Shares}
	case "not-allotted":
		return Classification{Status: StatusNotAllotted}
	case "error":
		return Classification{Status: StatusError, Detail: msg.Error}
	}
	return Classify(msg.Text)
}

func (r *Runner) finish(t Target, c Classification) Result {
	return Result{
		BOID:        t.BOID,
		Label:       t.Label,
		Status:      c.Status,
		ShareQty:    c.ShareQty,
		ErrorDetail: c.Detail,
		CompletedAt: r.now(),
	}
}

func waitErrorDetail(err error) string {
	var remote *bridge.RemoteError
	switch {
	case errors.Is(err, bridge.ErrWaitTimeout):
		return timeoutDetail
	case errors.As(err, &remote):
		return remote.Detail
	default:
		return err.Error()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
