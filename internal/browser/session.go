package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"github.com/jmylchreest/flatscraper/internal/logger"
)

var (
	// ErrChallenge is returned when a page load ended on a bot-challenge page.
	ErrChallenge = errors.New("bot challenge page")

	// ErrTimeout is returned when a page did not finish loading in time.
	ErrTimeout = errors.New("page load timed out")
)

// Session is one browser tab. It is not safe for concurrent use; the
// pipeline drives it sequentially.
type Session struct {
	cfg         Config
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	limiter     *rate.Limiter
}

// NewSession starts Chrome and opens a tab. Cancelling ctx shuts the browser
// down; Close does the same explicitly.
func NewSession(ctx context.Context, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(cfg)...)
	tab, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)

	// The first Run allocates the browser and must not carry a timeout,
	// otherwise Chrome is killed when it expires.
	if err := chromedp.Run(tab); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	setup := []chromedp.Action{
		network.Enable(),
		emulation.SetLocaleOverride().WithLocale(strings.ReplaceAll(cfg.Locale, "-", "_")),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": acceptLanguage(cfg.Locale)}),
	}
	if cfg.Stealth {
		setup = append(setup, injectStealth(cfg.Locale))
	}

	startCtx, cancelStart := context.WithTimeout(tab, cfg.NavigationTimeout)
	defer cancelStart()
	if err := chromedp.Run(startCtx, setup...); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("configure tab: %w", err)
	}

	logger.Debug("browser session started",
		"headless", cfg.Headless,
		"locale", cfg.Locale,
		"viewport", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"stealth", cfg.Stealth)

	return &Session{
		cfg:         cfg,
		tab:         tab,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		limiter:     rate.NewLimiter(rate.Every(cfg.MinNavigationInterval), 1),
	}, nil
}

// Close shuts the browser down.
func (s *Session) Close() error {
	s.cancelTab()
	s.cancelAlloc()
	return nil
}

// run executes actions on the tab, bounded by timeout and by ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads url and waits for the body plus the configured settle time.
// Page loads are paced by the session's rate limiter.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	var title string
	err := s.run(ctx, s.cfg.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.cfg.Settle),
		chromedp.Title(&title),
	)
	if err != nil {
		s.saveScreenshot("navigate")
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrTimeout, url)
		}
		return fmt.Errorf("navigate %s: %w", url, err)
	}

	var html string
	if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err == nil {
		if kind := detectChallenge(title, html); kind != "" {
			logger.Warn("challenge page detected", "url", url, "type", kind)
			return fmt.Errorf("%w: %s", ErrChallenge, kind)
		}
	}

	logger.Debug("page loaded", "url", url, "title", title, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// HTML returns the current document's outer HTML.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

// Location returns the tab's current URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// Evaluate runs script in the page and decodes its result into res, which
// may be nil.
func (s *Session) Evaluate(ctx context.Context, script string, res any) error {
	if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.Evaluate(script, res)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

// Visible waits up to wait for selector to become visible.
func (s *Session) Visible(ctx context.Context, selector string, wait time.Duration) bool {
	return s.run(ctx, wait, chromedp.WaitVisible(selector, chromedp.ByQuery)) == nil
}

// HasText polls up to wait for text to appear in the page's visible text.
func (s *Session) HasText(ctx context.Context, text string, wait time.Duration) bool {
	script := fmt.Sprintf(`!!(document.body && document.body.innerText.includes(%s))`, jsString(text))
	deadline := time.Now().Add(wait)
	for {
		var found bool
		if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.Evaluate(script, &found)); err == nil && found {
			return true
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// Click clicks the first element matching selector. If the element is
// covered or not interactable a DOM click is dispatched instead.
func (s *Session) Click(ctx context.Context, selector string) error {
	err := s.run(ctx, s.cfg.ActionTimeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var clicked bool
	script := fmt.Sprintf(`(function(){const el=document.querySelector(%s); if(!el) return false; el.click(); return true;})()`, jsString(selector))
	if jsErr := s.run(ctx, s.cfg.ActionTimeout, chromedp.Evaluate(script, &clicked)); jsErr != nil || !clicked {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	logger.Debug("used DOM click fallback", "selector", selector)
	return nil
}

// Fill replaces the value of an input or textarea and fires input and change
// events so that page scripts notice.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	notify := fmt.Sprintf(`(function(){const el=document.querySelector(%s); if(!el) return;
el.dispatchEvent(new Event('input',{bubbles:true})); el.dispatchEvent(new Event('change',{bubbles:true}));})()`, jsString(selector))

	err := s.run(ctx, s.cfg.ActionTimeout,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, value, chromedp.ByQuery),
		chromedp.Evaluate(notify, nil),
	)
	if err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

// Check ticks a checkbox.
func (s *Session) Check(ctx context.Context, selector string) error {
	script := fmt.Sprintf(`(function(){const el=document.querySelector(%s); if(!el) return false;
if(!el.checked){el.click();} return el.checked;})()`, jsString(selector))
	var checked bool
	if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.Evaluate(script, &checked)); err != nil {
		return fmt.Errorf("check %s: %w", selector, err)
	}
	if !checked {
		return fmt.Errorf("check %s: element not found or not checkable", selector)
	}
	return nil
}

// Pause waits d unless ctx is cancelled first.
func (s *Session) Pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Session) saveScreenshot(reason string) {
	if s.cfg.ScreenshotDir == "" {
		return
	}
	shot := captureScreenshot(s.tab)
	if shot == nil {
		return
	}
	path := filepath.Join(s.cfg.ScreenshotDir, fmt.Sprintf("flatscraper-%s-%d.png", reason, time.Now().UnixNano()))
	if err := os.WriteFile(path, shot, 0o644); err != nil {
		logger.Debug("screenshot not saved", "error", err)
		return
	}
	logger.Debug("debug screenshot saved", "path", path)
}

// detectChallenge reports the kind of bot challenge a page shows, or "".
// Only full-page interstitials count; embedded captchas in forms do not.
func detectChallenge(title, html string) string {
	t := strings.ToLower(title)
	h := strings.ToLower(html)

	switch {
	case strings.Contains(t, "just a moment"),
		strings.Contains(t, "attention required"),
		strings.Contains(h, "cf_chl_opt"),
		strings.Contains(h, "cf-challenge"):
		return "cloudflare"
	case strings.Contains(h, "challenges.cloudflare.com/turnstile"):
		return "cloudflare-turnstile"
	case strings.Contains(t, "access denied"),
		strings.Contains(t, "zugriff verweigert"),
		strings.Contains(t, "bot detection"):
		return "anti-bot"
	}
	return ""
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
