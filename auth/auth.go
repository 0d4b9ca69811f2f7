// Package auth handles LinkedIn session management: logging an account in
// through the browser, detecting security challenges, reusing stored session
// cookies, and rotating accounts through rest windows after rate limits.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/linkurl/linkurl/browser"
	"github.com/linkurl/linkurl/config"
	"github.com/linkurl/linkurl/logger"
	"github.com/linkurl/linkurl/storage"
)

var (
	// ErrLoginFailed means credentials were rejected or the login form
	// never left the login page.
	ErrLoginFailed = errors.New("login failed")

	// ErrSecurityChallenge means LinkedIn interposed a captcha, checkpoint,
	// or two-factor prompt that cannot be passed automatically.
	ErrSecurityChallenge = errors.New("security challenge encountered")
)

// Authenticator logs accounts into LinkedIn through a browser session.
type Authenticator struct {
	config  *config.Config
	logger  *logger.Logger
	storage *storage.Database
}

// NewAuthenticator creates a new authenticator.
func NewAuthenticator(cfg *config.Config, log *logger.Logger, db *storage.Database) *Authenticator {
	return &Authenticator{
		config:  cfg,
		logger:  log.WithModule("auth"),
		storage: db,
	}
}

// Login signs the account in. It first tries to restore a stored session;
// only when that fails does it drive the login form.
func (a *Authenticator) Login(session *browser.Session, account config.Account) error {
	if a.RestoreSession(session) {
		a.logger.AccountEvent(account.Email, "session_restored")
		return nil
	}

	a.logger.AccountEvent(account.Email, "login_start")

	if err := session.Navigate(a.config.URLs.LoginURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	a.dismissCookieBanner(session)

	if err := a.fillLoginForm(session, account); err != nil {
		return err
	}

	// Give the post-submit redirect time to land.
	time.Sleep(3 * time.Second)

	currentURL, err := session.CurrentURL()
	if err != nil {
		return fmt.Errorf("failed to read URL after login: %w", err)
	}

	switch {
	case strings.Contains(currentURL, "/feed"):
		a.logger.AccountEvent(account.Email, "login_success")
		a.saveSession(session)
		return nil

	case strings.Contains(currentURL, "/checkpoint"),
		strings.Contains(currentURL, "/challenge"),
		session.Has(a.config.Selectors["captcha_frame"]):
		a.logger.SecurityEvent("login_challenge", currentURL)
		return ErrSecurityChallenge

	default:
		a.logger.AccountEvent(account.Email, "login_failed")
		return ErrLoginFailed
	}
}

// fillLoginForm enters credentials and submits.
func (a *Authenticator) fillLoginForm(session *browser.Session, account config.Account) error {
	emailField, err := session.Resolve(a.config.Selectors["login_email_field"])
	if err != nil {
		return fmt.Errorf("email field not found: %w", err)
	}
	if err := emailField.Input(account.Email); err != nil {
		return fmt.Errorf("failed to enter email: %w", err)
	}

	passwordField, err := session.Resolve(a.config.Selectors["login_password_field"])
	if err != nil {
		return fmt.Errorf("password field not found: %w", err)
	}
	if err := passwordField.Input(account.Password); err != nil {
		return fmt.Errorf("failed to enter password: %w", err)
	}

	submitButton, err := session.Resolve(a.config.Selectors["login_submit_button"])
	if err != nil {
		return fmt.Errorf("submit button not found: %w", err)
	}
	if err := submitButton.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click submit: %w", err)
	}

	return nil
}

// dismissCookieBanner clicks the consent banner if one is shown.
func (a *Authenticator) dismissCookieBanner(session *browser.Session) {
	if button, err := session.Resolve(a.config.Selectors["cookie_accept_button"]); err == nil {
		if err := button.Click(proto.InputMouseButtonLeft, 1); err == nil {
			a.logger.Debug("Cookie banner dismissed")
		}
	}
}

// RestoreSession installs stored cookies and verifies they still authenticate
// by loading the feed. Returns true when the session is usable.
func (a *Authenticator) RestoreSession(session *browser.Session) bool {
	cookies, err := a.storage.LoadCookiesFromFile(a.config.Storage.CookiesPath)
	if err != nil || len(cookies) == 0 {
		cookies, err = a.storage.LoadCookies()
		if err != nil || len(cookies) == 0 {
			return false
		}
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}

	if err := session.SetCookies(params); err != nil {
		a.logger.WithError(err).Warn("Failed to install stored cookies")
		return false
	}

	if err := session.Navigate(a.config.URLs.FeedURL); err != nil {
		return false
	}

	currentURL, err := session.CurrentURL()
	if err != nil {
		return false
	}

	return strings.Contains(currentURL, "/feed")
}

// saveSession persists the current cookies to the database and cookie file.
func (a *Authenticator) saveSession(session *browser.Session) {
	rodCookies, err := session.Cookies(nil)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to read session cookies")
		return
	}

	cookies := make([]*storage.SessionCookie, 0, len(rodCookies))
	for _, c := range rodCookies {
		cookies = append(cookies, &storage.SessionCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  int64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}

	if err := a.storage.SaveCookies(cookies); err != nil {
		a.logger.WithError(err).Warn("Failed to save session cookies")
	}
	if err := a.storage.SaveCookiesToFile(cookies, a.config.Storage.CookiesPath); err != nil {
		a.logger.WithError(err).Warn("Failed to save cookie file")
	}
}
