// Package rules implements the page outcome classifier for trial link checks.
// Given what the browser observed on a loaded page, it decides which of the
// mutually exclusive outcomes the page represents using ordered keyword and
// URL-marker evidence. The package performs no browser or network access.
package rules

// Outcome is the classification tag assigned to a checked link.
type Outcome string

// All possible outcomes for a single link check. OutcomeError is reported by
// the browser-driving layer when a page never loaded; Classify never returns it.
const (
	OutcomeNeedsLogin      Outcome = "NEEDS_LOGIN"
	OutcomeRateLimited     Outcome = "RATE_LIMIT"
	OutcomeAlreadyPremium  Outcome = "ALREADY_PREMIUM"
	OutcomeInvalid         Outcome = "INVALID"
	OutcomeRequiresPayment Outcome = "REQUIRES_PAYMENT"
	OutcomeValid           Outcome = "WORKING"
	OutcomeUnknown         Outcome = "UNKNOWN"
	OutcomeError           Outcome = "ERROR"
)

// Keyword group names matched against the lowered page text.
const (
	KeywordRateLimit      = "rate_limit"
	KeywordUnavailable    = "unavailable"
	KeywordAlreadyPremium = "already_premium"
	KeywordTrialPositive  = "trial_positive"
	KeywordPaymentForm    = "payment_form"
	KeywordLoginRequired  = "login_required"
)

// Marker group names matched against the final URL.
const (
	MarkerLoginRedirect = "login_redirect"
	MarkerFeedRedirect  = "feed_redirect"
	MarkerRedeemPath    = "redeem_path"
)

// Selector role names the classifier cares about. The browser layer resolves
// each role's locator list (first locator that matches wins) and reports
// presence as a boolean.
const (
	RoleActionButtons = "action_buttons"
)

// Confidence grades attached to WORKING results.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
)

// RuleSet is the immutable rule configuration loaded once per run.
// Keywords map an outcome category to an ordered list of lowercase substrings
// matched against page text. Markers map a category to URL substrings.
// Selectors map a role name to an ordered fallback list of CSS/XPath locators.
type RuleSet struct {
	Keywords  map[string][]string
	Markers   map[string][]string
	Selectors map[string][]string
}

// PageObservation is what the browser layer saw after navigating to a link.
// It is created fresh for each check and discarded after classification.
type PageObservation struct {
	// FinalURL is the URL after all redirects settled.
	FinalURL string
	// Text is the full rendered text of the document.
	Text string
	// Selectors reports, per configured role, whether at least one of the
	// role's locators resolved to an element.
	Selectors map[string]bool
}

// Result is the classifier's verdict for one link.
type Result struct {
	Outcome Outcome `json:"outcome"`
	// Evidence is the literal keyword, marker, or selector role that decided
	// the outcome, kept for auditing.
	Evidence   string `json:"evidence,omitempty"`
	FinalURL   string `json:"final_url,omitempty"`
	Confidence string `json:"confidence,omitempty"`
}
