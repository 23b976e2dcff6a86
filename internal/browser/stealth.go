package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// stealthTemplate hides the usual headless giveaways. %s is replaced with the
// JSON array of navigator.languages.
const stealthTemplate = `
(function() {
    'use strict';

    Object.defineProperty(navigator, 'webdriver', { get: () => undefined, configurable: true });
    delete Object.getPrototypeOf(navigator).webdriver;

    Object.defineProperty(navigator, 'languages', {
        get: () => Object.freeze(%s),
        configurable: true
    });

    const plugins = [
        { name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer' },
        { name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai' }
    ];
    Object.defineProperty(navigator, 'plugins', {
        get: () => Object.assign(plugins.slice(), {
            item: (i) => plugins[i] || null,
            namedItem: (n) => plugins.find(p => p.name === n) || null,
            refresh: () => {}
        }),
        configurable: true
    });

    if (!window.chrome) {
        Object.defineProperty(window, 'chrome', { value: {}, writable: true, configurable: false });
    }
    if (!window.chrome.runtime) {
        window.chrome.runtime = { connect: function() {}, sendMessage: function() {} };
    }

    const originalQuery = Permissions.prototype.query;
    Permissions.prototype.query = function(parameters) {
        if (parameters.name === 'notifications') {
            return Promise.resolve({ state: Notification.permission });
        }
        return originalQuery.call(this, parameters);
    };

    const glHandler = {
        apply: function(target, ctx, args) {
            if (args[0] === 37445) return 'Intel Inc.';
            if (args[0] === 37446) return 'Intel Iris OpenGL Engine';
            return Reflect.apply(target, ctx, args);
        }
    };
    try {
        WebGLRenderingContext.prototype.getParameter =
            new Proxy(WebGLRenderingContext.prototype.getParameter, glHandler);
    } catch (e) {}

    if (navigator.hardwareConcurrency === 0) {
        Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 4, configurable: true });
    }
})();
`

// StealthScript returns the anti-detection script for the given locale.
func StealthScript(locale string) string {
	langs, _ := json.Marshal(languages(locale))
	return fmt.Sprintf(stealthTemplate, langs)
}

// languages turns "de-DE" into ["de-DE", "de", "en-US", "en"].
func languages(locale string) []string {
	out := []string{locale}
	if base, _, ok := strings.Cut(locale, "-"); ok && base != "" {
		out = append(out, base)
	}
	if !strings.HasPrefix(locale, "en") {
		out = append(out, "en-US", "en")
	}
	return out
}

// acceptLanguage builds an Accept-Language header value from a locale.
func acceptLanguage(locale string) string {
	langs := languages(locale)
	parts := make([]string, len(langs))
	for i, l := range langs {
		if i == 0 {
			parts[i] = l
			continue
		}
		parts[i] = fmt.Sprintf("%s;q=%.1f", l, 1.0-float64(i)*0.1)
	}
	return strings.Join(parts, ",")
}

// allocatorOptions returns the Chrome flags for cfg.
func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("lang", cfg.Locale),
		chromedp.WindowSize(cfg.Width, cfg.Height),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if path := FindChromePath(); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	return opts
}

// injectStealth registers the stealth script for every new document.
func injectStealth(locale string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(StealthScript(locale)).Do(ctx)
		return err
	})
}

// captureScreenshot grabs the current viewport, or nil if the tab is not
// responsive.
func captureScreenshot(ctx context.Context) []byte {
	var buf []byte
	captureCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := chromedp.Run(captureCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil
	}
	return buf
}
