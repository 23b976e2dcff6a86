package wggesucht

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/flatscraper/internal/logger"
)

const (
	messageField   = `textarea[name="message"], textarea[id*="message"], textarea[placeholder*="Nachricht"], textarea[placeholder*="Message"], form textarea`
	adviceButton   = `#sec_advice button, #sec_advice .modal-footer button`
	sendButton     = `button.conversation_send_button`
	sendButtonText = "Senden"
)

const hideAdviceScript = `(function() {
    const m = document.getElementById('sec_advice');
    if (!m) return;
    if (typeof $ !== 'undefined') { $('#sec_advice').modal('hide'); } else { m.style.display = 'none'; }
})()`

// clickSendScript is the fallback when the send button has no known class.
const clickSendScript = `(function(label) {
    const el = Array.from(document.querySelectorAll('button, input[type="submit"]'))
        .find(e => ((e.innerText || e.value || '').trim()).includes(label));
    if (!el) return false;
    el.click();
    return true;
})(%s)`

// MessageURL derives the contact-form URL from a listing URL.
func MessageURL(listingURL string) string {
	return strings.Replace(listingURL, "wg-gesucht.de/", "wg-gesucht.de/nachricht-senden/", 1)
}

// SendMessage fills the contact form of the listing at url with text and
// submits it. Any failure is logged and reported as false.
func (p *Platform) SendMessage(ctx context.Context, url, text string) bool {
	if err := p.send(ctx, url, text); err != nil {
		logger.Component(Name).Warn("message not sent", "url", url, "error", err)
		return false
	}
	return true
}

func (p *Platform) send(ctx context.Context, url, text string) error {
	if err := p.page.Navigate(ctx, MessageURL(url)); err != nil {
		return fmt.Errorf("open message form: %w", err)
	}

	if !p.page.Visible(ctx, messageField, 8*time.Second) {
		return fmt.Errorf("message field not found")
	}
	if err := p.page.Fill(ctx, messageField, text); err != nil {
		return err
	}
	_ = p.page.Pause(ctx, 500*time.Millisecond)

	if p.page.Visible(ctx, adviceButton, time.Second) {
		if err := p.page.Click(ctx, adviceButton); err == nil {
			_ = p.page.Pause(ctx, 800*time.Millisecond)
		}
	}
	if err := p.page.Evaluate(ctx, hideAdviceScript, nil); err == nil {
		_ = p.page.Pause(ctx, 500*time.Millisecond)
	}

	if err := p.page.Click(ctx, sendButton); err != nil {
		var clicked bool
		script := fmt.Sprintf(clickSendScript, jsQuote(sendButtonText))
		if jsErr := p.page.Evaluate(ctx, script, &clicked); jsErr != nil || !clicked {
			return fmt.Errorf("send button not found: %w", err)
		}
	}

	return p.page.Pause(ctx, 2*time.Second)
}

func jsQuote(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}
