// internal/browser/session.go

// Package browser owns the chromedp session and implements the actuation and
// inspection primitives the engine consumes. All DOM knowledge lives here;
// the engine only ever sees UIState values and action outcomes.
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solenoidlabs/webpilot/internal/config"
)

// Session represents one live browser tab driven over CDP. It owns the
// allocator and tab contexts and hands out the Actuator and Inspector bound
// to that tab.
type Session struct {
	id          string
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	logger      *zap.Logger
	cfg         config.BrowserConfig
}

// NewSession launches a browser and connects a fresh tab. The parent context
// bounds the whole session lifetime.
func NewSession(parent context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	)
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	for _, arg := range cfg.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)

	sessionID := uuid.New().String()
	sessionLogger := logger.Named("browser").With(zap.String("session_id", sessionID))

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	s := &Session{
		id:          sessionID,
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		logger:      sessionLogger,
		cfg:         cfg,
	}

	// Force target creation so startup failures surface here, not on the
	// first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to connect browser target: %w", err)
	}

	sessionLogger.Info("Browser session started", zap.Bool("headless", cfg.Headless))
	return s, nil
}

// ID returns the unique identifier for the session.
func (s *Session) ID() string {
	return s.id
}

// Navigate opens the given address and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	if err := s.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	s.logger.Debug("Navigation complete", zap.String("url", url))
	return nil
}

// Actuator returns the action executor bound to this tab.
func (s *Session) Actuator() *Actuator {
	return &Actuator{session: s, logger: s.logger.Named("actuator")}
}

// Inspector returns the DOM query adapter bound to this tab.
func (s *Session) Inspector() *Inspector {
	return &Inspector{session: s}
}

// Evaluate runs a JavaScript expression in the page and unmarshals its result
// into out. The annotator builds its discovery pass on this.
func (s *Session) Evaluate(ctx context.Context, expression string, out any) error {
	return s.run(ctx, chromedp.Evaluate(expression, out))
}

// Close tears the tab and browser down.
func (s *Session) Close() {
	s.logger.Debug("Closing browser session")
	if s.cancelTab != nil {
		s.cancelTab()
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
	}
}

// run executes chromedp actions respecting both the session lifetime and the
// caller's context.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// combineContext derives a context from primary that is also cancelled when
// secondary ends. chromedp requires its own context chain as the parent, so
// the caller's deadline has to be grafted on this way.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(primary)
	stop := context.AfterFunc(secondary, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
