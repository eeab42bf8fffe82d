package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ipocheck/cmd/ipocheck/ui"
	"ipocheck/internal/bridge"
	"ipocheck/internal/check"
	"ipocheck/internal/report"
	"ipocheck/internal/solver"
	"ipocheck/internal/webview"
)

var (
	checkCompany  string
	checkCSVPath  string
	checkNoSolver bool
	checkNoPrompt bool
	checkHeadful  bool
)

var checkCmd = &cobra.Command{
	Use:   "check [targets-file]",
	Short: "Check allotment status for every BOID in a file",
	Long: `Runs the bulk allotment check. The targets file holds one BOID per
line, optionally followed by a comma and a label:

  1301010000123456, mine
  1301010000654321, spouse

Each BOID is checked strictly in order against the selected company. Captcha
solving uses the configured recognition service; when it is disabled or out
of retries, you are asked to read the captcha yourself (or skip).`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkCompany, "company", "c", "", "company name to select on the form")
	checkCmd.Flags().StringVar(&checkCSVPath, "csv", "", "write results to a CSV file")
	checkCmd.Flags().BoolVar(&checkNoSolver, "no-solver", false, "disable automated captcha recognition")
	checkCmd.Flags().BoolVar(&checkNoPrompt, "no-prompt", false, "never ask a human; skip instead")
	checkCmd.Flags().BoolVar(&checkHeadful, "headful", false, "show the browser window")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkNoSolver {
		cfg.Solver.Enabled = false
	}
	if checkHeadful {
		cfg.Browser.Headless = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	targets, err := loadTargets(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The bridge and the surface reference each other: the surface pumps
	// inbound messages into the bridge, the bridge injects through the
	// surface. The pump only starts on Open, after both exist.
	var br *bridge.Bridge
	wv := webview.New(webview.Config{
		Bin:                 cfg.Browser.Bin,
		DebuggerURL:         cfg.Browser.DebuggerURL,
		Headless:            cfg.Browser.Headless,
		ViewportWidth:       cfg.Browser.GetViewportWidth(),
		ViewportHeight:      cfg.Browser.GetViewportHeight(),
		NavigationTimeoutMs: cfg.Browser.NavigationTimeoutMs,
		PollIntervalMs:      cfg.Browser.PollIntervalMs,
	}, func(m bridge.Message) { br.Dispatch(m) }, logger.Named("webview"))
	br = bridge.New(wv, logger.Named("bridge"))

	if err := wv.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = wv.Close() }()

	if err := wv.Open(ctx, cfg.Portal.URL); err != nil {
		return err
	}

	var sv solver.Solver = solver.Disabled{}
	if cfg.Solver.Enabled {
		sv = solver.NewClient(cfg.Solver.BaseURL, cfg.Solver.Timeout(), logger.Named("solver"))
	}

	var pr solver.Prompter = solver.NoPrompter{}
	if !checkNoPrompt {
		pr = ui.NewCaptchaPrompter(logger.Named("prompt"))
	}

	runner := check.NewRunner(br, sv, pr, check.Options{
		MaxAttempts:    cfg.Check.MaxAttempts,
		ExtractTimeout: cfg.Check.ExtractTimeout(),
		SubmitTimeout:  cfg.Check.SubmitTimeout(),
		PaceDelay:      cfg.Check.PaceDelay(),
		CompanySettle:  cfg.Check.CompanySettle(),
	}, logger.Named("check"))

	done := 0
	runner.OnResult = func(r check.Result) {
		done++
		fmt.Fprintf(cmd.OutOrStdout(), "[%d/%d] %s\n", done, len(targets), ui.ResultLine(r))
	}

	rep, runErr := runner.Run(ctx, targets, checkCompany)
	if rep == nil {
		return runErr
	}
	if runErr != nil {
		// Partial run (cancelled): report what finished.
		logger.Warn("run stopped early", zap.Error(runErr), zap.Int("completed", len(rep.Results)))
	}

	if err := renderReport(cmd, rep); err != nil {
		return err
	}

	if checkCSVPath != "" {
		f, err := os.Create(checkCSVPath)
		if err != nil {
			return fmt.Errorf("create csv: %w", err)
		}
		defer f.Close()
		if err := report.WriteCSV(f, rep.Results); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "results written to %s\n", checkCSVPath)
	}

	if cfg.History.Enabled && len(rep.Results) > 0 {
		if err := saveHistory(ctx, rep); err != nil {
			logger.Warn("could not record run history", zap.Error(err))
		}
	}

	return runErr
}

func renderReport(cmd *cobra.Command, rep *check.Report) error {
	md := report.Markdown(rep)
	rendered, err := glamour.Render(md, "auto")
	if err != nil {
		// Plain markdown still reads fine.
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

func saveHistory(ctx context.Context, rep *check.Report) error {
	store, err := report.OpenStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.SaveRun(ctx, rep)
	if err != nil {
		return err
	}
	logger.Info("run recorded", zap.String("run_id", id))
	return nil
}
