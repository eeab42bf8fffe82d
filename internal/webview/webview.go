// Package webview is the concrete rendering surface: a rod-driven Chrome
// page hosting the remote allotment form. It satisfies the bridge's Surface
// contract and pumps page-side messages back into the bridge.
//
// Generated instructions call window.__ipocheckPost(payload); this adapter
// installs that hook as a queue and drains it on a fixed poll interval. The
// queue-and-poll shape mirrors how the page is the source of truth: the
// surface never blocks script execution waiting for Go.
package webview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"ipocheck/internal/bridge"
)

// Config holds browser configuration.
type Config struct {
	Bin                 string
	DebuggerURL         string
	Headless            bool
	ViewportWidth       int
	ViewportHeight      int
	NavigationTimeoutMs int
	PollIntervalMs      int
}

// NavigationTimeout returns the navigation timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// PollInterval returns the message-queue drain interval.
func (c Config) PollInterval() time.Duration {
	if c.PollIntervalMs <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c Config) viewportWidth() int {
	if c.ViewportWidth == 0 {
		return 1280
	}
	return c.ViewportWidth
}

func (c Config) viewportHeight() int {
	if c.ViewportHeight == 0 {
		return 900
	}
	return c.ViewportHeight
}

// WebView owns one Chrome page on the allotment portal.
type WebView struct {
	cfg       Config
	logger    *zap.Logger
	onMessage func(bridge.Message)

	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page
	cancel  context.CancelFunc
}

// New returns an unstarted surface. onMessage receives every decoded
// page-side message, typically bridge.Dispatch.
func New(cfg Config, onMessage func(bridge.Message), logger *zap.Logger) *WebView {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebView{cfg: cfg, logger: logger, onMessage: onMessage}
}

// Start connects to an existing Chrome or launches a new one.
func (w *WebView) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.browser != nil {
		if _, err := w.browser.Version(); err == nil {
			return nil
		}
		w.logger.Warn("stale browser connection, reconnecting")
		_ = w.browser.Close()
		w.browser = nil
	}

	controlURL := w.cfg.DebuggerURL
	if controlURL == "" {
		launch := launcher.New().Headless(w.cfg.Headless)
		if w.cfg.Bin != "" {
			launch = launch.Bin(w.cfg.Bin)
		}
		url, err := launch.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}
	w.browser = browser
	return nil
}

// Open navigates a fresh page to the portal, rotating through loading
// strategies until one renders. The message pump starts once the page is up.
func (w *WebView) Open(ctx context.Context, url string) error {
	w.mu.Lock()
	browser := w.browser
	w.mu.Unlock()
	if browser == nil {
		return errors.New("webview: not started")
	}

	var lastErr error
	for _, st := range strategies() {
		page, err := w.openWithStrategy(ctx, browser, url, st)
		if err != nil {
			w.logger.Warn("page load failed, trying next strategy",
				zap.String("strategy", st.Name),
				zap.Error(err))
			lastErr = err
			continue
		}

		pumpCtx, cancel := context.WithCancel(ctx)
		w.mu.Lock()
		w.page = page
		w.cancel = cancel
		w.mu.Unlock()

		go w.pump(pumpCtx, page)
		w.logger.Info("portal page ready",
			zap.String("strategy", st.Name),
			zap.String("url", url))
		return nil
	}
	return fmt.Errorf("webview: all strategies failed: %w", lastErr)
}

func (w *WebView) openWithStrategy(ctx context.Context, browser *rod.Browser, url string, st Strategy) (*rod.Page, error) {
	var (
		page *rod.Page
		err  error
	)
	if st.Incognito {
		incognito, ierr := browser.Incognito()
		if ierr != nil {
			return nil, fmt.Errorf("incognito context: %w", ierr)
		}
		page, err = incognito.Page(proto.TargetCreateTarget{})
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := (proto.NetworkSetUserAgentOverride{UserAgent: st.UserAgent}).Call(page); err != nil {
		w.logger.Warn("user-agent override failed", zap.Error(err))
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             w.cfg.viewportWidth(),
		Height:            w.cfg.viewportHeight(),
		DeviceScaleFactor: 1.0,
	}).Call(page); err != nil {
		w.logger.Warn("viewport override failed", zap.Error(err))
	}

	timed := page.Context(ctx).Timeout(w.cfg.NavigationTimeout())
	if err := timed.Navigate(url); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if err := timed.WaitLoad(); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("wait load: %w", err)
	}

	if err := w.installHook(ctx, page); err != nil {
		_ = page.Close()
		return nil, err
	}
	return page, nil
}

// Inject executes one generated instruction on the page. Fire and forget:
// the script's outcome, if any, comes back through the message queue.
func (w *WebView) Inject(ctx context.Context, script string) error {
	w.mu.Lock()
	page := w.page
	w.mu.Unlock()
	if page == nil {
		return errors.New("webview: no open page")
	}

	_, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:      "() => { " + script + " }",
		ByValue: true,
	})
	if err != nil {
		return fmt.Errorf("inject script: %w", err)
	}
	return nil
}

// installHook creates the page-side post function and its backing queue.
func (w *WebView) installHook(ctx context.Context, page *rod.Page) error {
	_, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: `
		() => {
			if (window.__ipocheckPost) return true;
			window.__ipocheckQueue = [];
			window.__ipocheckPost = (payload) => {
				window.__ipocheckQueue.push(payload);
			};
			return true;
		}
		`,
		ByValue: true,
	})
	if err != nil {
		return fmt.Errorf("install message hook: %w", err)
	}
	return nil
}

// pump drains the page-side queue on a fixed interval and feeds decoded
// messages to the bridge. It also re-installs the hook if a navigation wiped
// it; anything posted in that window is lost, which the orchestrator's wait
// timeouts absorb.
func (w *WebView) pump(ctx context.Context, page *rod.Page) {
	ticker := time.NewTicker(w.cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
				JS: `
				() => {
					if (!window.__ipocheckPost) {
						window.__ipocheckQueue = [];
						window.__ipocheckPost = (payload) => {
							window.__ipocheckQueue.push(payload);
						};
					}
					const buf = Array.isArray(window.__ipocheckQueue) ? window.__ipocheckQueue : [];
					window.__ipocheckQueue = [];
					return buf;
				}
				`,
				ByValue: true,
			})
			if err != nil || res == nil || res.Value.Nil() {
				continue
			}

			raw, err := res.Value.MarshalJSON()
			if err != nil {
				continue
			}
			var payloads []string
			if err := json.Unmarshal(raw, &payloads); err != nil {
				continue
			}

			for _, p := range payloads {
				var msg bridge.Message
				if err := json.Unmarshal([]byte(p), &msg); err != nil {
					w.logger.Warn("undecodable surface message", zap.Error(err))
					continue
				}
				w.logger.Debug("surface message",
					zap.String("type", string(msg.Type)),
					zap.String("boid", msg.BOID))
				if w.onMessage != nil {
					w.onMessage(msg)
				}
			}
		}
	}
}

// Close stops the pump and shuts the browser down.
func (w *WebView) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.page != nil {
		_ = w.page.Close()
		w.page = nil
	}
	var err error
	if w.browser != nil {
		err = w.browser.Close()
		w.browser = nil
	}
	return err
}
