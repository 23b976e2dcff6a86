package wggesucht

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jmylchreest/flatscraper/internal/logger"
	"github.com/jmylchreest/flatscraper/internal/platform"
)

const (
	emailField    = "#login_email_username"
	passwordField = "#login_password"
	rememberBox   = "#auto_login"
	submitButton  = "#login_submit"
	signInLink    = `a[onclick*="sign_in"]`
)

// acceptCookiesScript clicks the first visible consent button. It returns
// true if one was clicked.
const acceptCookiesScript = `(function() {
    const labels = ['Alle akzeptieren', 'Akzeptieren'];
    const candidates = Array.from(document.querySelectorAll(
        'button, a, [class*="accept"], [id*="accept"], [class*="cmp"] button, [class*="consent"] button'));
    for (const label of labels) {
        const el = candidates.find(e => e.offsetParent !== null && (e.innerText || '').trim().includes(label));
        if (el) { el.click(); return true; }
    }
    return false;
})()`

// openLoginModalScript uses the site's own helpers to show the login modal.
const openLoginModalScript = `(function() {
    if (typeof fireLoginOrRegisterModalRequest === 'function') {
        fireLoginOrRegisterModalRequest('sign_in');
    } else if (typeof $ !== 'undefined') {
        $('#login_modal').modal('show');
    }
})()`

const showLoginModalScript = `(function() { if (typeof $ !== 'undefined') { $('#login_modal').modal('show'); } })()`

// Texts shown by the site after a login attempt.
var (
	twoFactorText    = "Login bestätigen"
	loggedInTexts    = []string{"Abmelden"}
	loginFailedTexts = []string{"Falsche E-Mail-Adresse", "Unbekannte E-Mail-Adresse", "Falsches Passwort"}
)

// Login signs in through the login modal. A two-factor prompt is answered by
// the user in the browser; Login waits for a line on Options.Prompt.
// A session that is already signed in, as on later scheduled cycles, is
// reused.
func (p *Platform) Login(ctx context.Context) error {
	log := logger.Component(Name)

	if p.opts.Email == "" || p.opts.Password == "" {
		return fmt.Errorf("%w: email or password not configured", platform.ErrLoginFailed)
	}

	if err := p.page.Navigate(ctx, BaseURL); err != nil {
		return fmt.Errorf("open %s: %w", BaseURL, err)
	}
	if err := p.page.Pause(ctx, 2*time.Second); err != nil {
		return err
	}

	var accepted bool
	if err := p.page.Evaluate(ctx, acceptCookiesScript, &accepted); err != nil {
		log.Debug("cookie banner script failed", "error", err)
	}
	if accepted {
		log.Debug("cookie banner accepted")
		_ = p.page.Pause(ctx, 500*time.Millisecond)
	}

	if p.signedIn(ctx, time.Second) {
		log.Debug("session already signed in", "email", p.opts.Email)
		return nil
	}

	if err := p.openLoginForm(ctx); err != nil {
		return err
	}

	if err := p.page.Fill(ctx, emailField, p.opts.Email); err != nil {
		return fmt.Errorf("%w: %v", platform.ErrLoginFailed, err)
	}
	if err := p.page.Fill(ctx, passwordField, p.opts.Password); err != nil {
		return fmt.Errorf("%w: %v", platform.ErrLoginFailed, err)
	}
	if err := p.page.Check(ctx, rememberBox); err != nil {
		log.Debug("remember-me checkbox not set", "error", err)
	}
	if err := p.page.Click(ctx, submitButton); err != nil {
		return fmt.Errorf("%w: %v", platform.ErrLoginFailed, err)
	}
	if err := p.page.Pause(ctx, 3*time.Second); err != nil {
		return err
	}

	if p.page.HasText(ctx, twoFactorText, time.Second) {
		if err := p.awaitTwoFactor(ctx); err != nil {
			return err
		}
	}

	return p.verifyLogin(ctx)
}

func (p *Platform) openLoginForm(ctx context.Context) error {
	if err := p.page.Evaluate(ctx, openLoginModalScript, nil); err != nil {
		logger.Debug("login modal helper failed", "error", err)
	}
	_ = p.page.Pause(ctx, 1500*time.Millisecond)

	if !p.page.Visible(ctx, emailField, time.Second) {
		if err := p.page.Click(ctx, signInLink); err != nil {
			logger.Debug("sign-in link not clickable", "error", err)
		}
		_ = p.page.Pause(ctx, time.Second)
		_ = p.page.Evaluate(ctx, showLoginModalScript, nil)
	}

	if !p.page.Visible(ctx, emailField, 5*time.Second) {
		return fmt.Errorf("%w: login form did not appear", platform.ErrLoginFailed)
	}
	return nil
}

func (p *Platform) awaitTwoFactor(ctx context.Context) error {
	if p.opts.Prompt == nil {
		return fmt.Errorf("%w: two-factor confirmation required", platform.ErrLoginFailed)
	}

	fmt.Fprintln(p.opts.Out, "2FA erforderlich: Gib den 6-stelligen Code im Browser ein und drücke dann hier Enter...")

	lines := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(p.opts.Prompt).ReadString('\n')
		lines <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-lines:
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read confirmation: %w", err)
		}
	}
	return p.page.Pause(ctx, 2*time.Second)
}

func (p *Platform) verifyLogin(ctx context.Context) error {
	for _, text := range loginFailedTexts {
		if p.page.HasText(ctx, text, 0) {
			return fmt.Errorf("%w: invalid email or password", platform.ErrLoginFailed)
		}
	}
	if p.signedIn(ctx, 2*time.Second) {
		logger.Component(Name).Info("logged in", "email", p.opts.Email)
		return nil
	}
	if !p.page.Visible(ctx, emailField, 500*time.Millisecond) {
		logger.Component(Name).Info("logged in", "email", p.opts.Email)
		return nil
	}
	return platform.ErrLoginFailed
}

func (p *Platform) signedIn(ctx context.Context, wait time.Duration) bool {
	for _, text := range loggedInTexts {
		if p.page.HasText(ctx, text, wait) {
			return true
		}
	}
	return false
}
