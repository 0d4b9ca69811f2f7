// Package browser provides browser automation setup and page observation
// using Rod. It owns everything that touches Chromium: launching, stealth
// pages, navigation, and collecting the page state the classifier consumes.
package browser

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/linkurl/linkurl/config"
	"github.com/linkurl/linkurl/logger"
	"github.com/linkurl/linkurl/rules"
)

// presenceTimeout bounds how long a selector-presence probe may wait.
const presenceTimeout = 2 * time.Second

// Session wraps one Rod browser with a single stealth page. Each checker
// worker owns exactly one Session; a Session is not safe for concurrent use.
type Session struct {
	config    *config.Config
	logger    *logger.Logger
	browser   *rod.Browser
	page      *rod.Page
	userAgent string
	rand      *rand.Rand
}

// NewSession creates a new, not yet launched browser session.
func NewSession(cfg *config.Config, log *logger.Logger) *Session {
	return &Session{
		config: cfg,
		logger: log.WithModule("browser"),
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Launch starts Chromium and opens a stealth page with a user agent drawn
// from the configured pool. Image loading is disabled: the classifier only
// reads text, and skipping images keeps checks fast.
func (s *Session) Launch() error {
	s.logger.Info("Launching browser")

	l := launcher.New().
		Headless(s.config.Settings.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("blink-settings", "imagesEnabled=false").
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-background-networking").
		Set("disable-extensions").
		Set("window-size", fmt.Sprintf("%d,%d", s.config.Settings.ViewportWidth, s.config.Settings.ViewportHeight))

	url, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	s.browser = rod.New().
		ControlURL(url).
		Timeout(s.config.GetTimeout())

	if err := s.browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	s.page, err = stealth.Page(s.browser)
	if err != nil {
		return fmt.Errorf("failed to create stealth page: %w", err)
	}

	if err := s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.config.Settings.ViewportWidth,
		Height:            s.config.Settings.ViewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}); err != nil {
		s.logger.WithError(err).Warn("Failed to set viewport")
	}

	if len(s.config.UserAgents) > 0 {
		s.userAgent = s.config.UserAgents[s.rand.Intn(len(s.config.UserAgents))]
		if err := s.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: s.userAgent,
		}); err != nil {
			s.logger.WithError(err).Warn("Failed to set user agent")
		} else {
			s.logger.WithField("user_agent", s.userAgent).Debug("User agent set")
		}
	}

	s.logger.Info("Browser launched")
	return nil
}

// Navigate loads a URL and waits for the document to settle.
func (s *Session) Navigate(url string) error {
	s.logger.BrowserAction("navigate", url)

	if err := s.page.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	if err := s.page.WaitLoad(); err != nil {
		return fmt.Errorf("page load failed: %w", err)
	}

	return nil
}

// Observe navigates to a link and collects everything the classifier needs:
// the final URL after redirects, the rendered text, and a presence flag per
// configured selector role. A returned error means the page never loaded and
// must be reported as an ERROR outcome without invoking the classifier.
func (s *Session) Observe(url string) (*rules.PageObservation, error) {
	if err := s.Navigate(url); err != nil {
		return nil, err
	}

	info, err := s.page.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to read page info: %w", err)
	}

	text := ""
	if body, err := s.page.Timeout(presenceTimeout).Element("body"); err == nil {
		if t, err := body.Text(); err == nil {
			text = t
		}
	}

	present := make(map[string]bool, len(s.config.Selectors))
	for role, locators := range s.config.Selectors {
		present[role] = s.Has(locators)
	}

	return &rules.PageObservation{
		FinalURL:  info.URL,
		Text:      text,
		Selectors: present,
	}, nil
}

// Resolve returns the first element any of the locators matches. Locator
// order is a fallback priority; CSS and XPath forms are both accepted.
func (s *Session) Resolve(locators []string) (*rod.Element, error) {
	for _, locator := range locators {
		var (
			el  *rod.Element
			err error
		)
		if isXPath(locator) {
			el, err = s.page.Timeout(presenceTimeout).ElementX(locator)
		} else {
			el, err = s.page.Timeout(presenceTimeout).Element(locator)
		}
		if err == nil && el != nil {
			return el, nil
		}
	}
	return nil, fmt.Errorf("no locator matched (tried %d)", len(locators))
}

// Has reports whether any of the locators resolves to at least one element.
// No visibility or interactability assertion is made.
func (s *Session) Has(locators []string) bool {
	_, err := s.Resolve(locators)
	return err == nil
}

// CurrentURL returns the page's current URL.
func (s *Session) CurrentURL() (string, error) {
	info, err := s.page.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// Page returns the underlying Rod page.
func (s *Session) Page() *rod.Page {
	return s.page
}

// SetCookies installs cookies on the session.
func (s *Session) SetCookies(cookies []*proto.NetworkCookieParam) error {
	return s.page.SetCookies(cookies)
}

// Cookies returns the session cookies for the given URLs.
func (s *Session) Cookies(urls []string) ([]*proto.NetworkCookie, error) {
	return s.page.Cookies(urls)
}

// Close shuts the browser down.
func (s *Session) Close() error {
	s.logger.Info("Closing browser")

	if s.page != nil {
		s.page.Close()
	}

	if s.browser != nil {
		return s.browser.Close()
	}

	return nil
}

// isXPath distinguishes XPath locators from CSS ones.
func isXPath(locator string) bool {
	return strings.HasPrefix(locator, "/") || strings.HasPrefix(locator, "(") || strings.HasPrefix(locator, "./")
}
