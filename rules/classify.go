package rules

import "strings"

// evaluation is the lowered view of an observation shared by all rules.
type evaluation struct {
	url  string
	text string
	obs  *PageObservation
	rs   *RuleSet
}

// decision is one step of the priority policy. Steps are evaluated in order
// and the first one that fires wins, which keeps the outcome deterministic
// when a page carries evidence for several categories at once.
type decision struct {
	outcome Outcome
	match   func(ev *evaluation) (evidence string, ok bool)
}

var policy = []decision{
	// A redirected auth wall can spuriously contain keywords from any other
	// category, so the login check always runs first.
	{OutcomeNeedsLogin, func(ev *evaluation) (string, bool) {
		if m, ok := firstMatch(ev.url, ev.rs.Markers[MarkerLoginRedirect]); ok {
			return m, true
		}
		return firstMatch(ev.text, ev.rs.Keywords[KeywordLoginRequired])
	}},
	// Challenge pages also contain generic error text, so they are ruled out
	// before the unavailable check gets a chance to misfire.
	{OutcomeRateLimited, func(ev *evaluation) (string, bool) {
		return firstMatch(ev.text, ev.rs.Keywords[KeywordRateLimit])
	}},
	{OutcomeAlreadyPremium, func(ev *evaluation) (string, bool) {
		return firstMatch(ev.text, ev.rs.Keywords[KeywordAlreadyPremium])
	}},
	{OutcomeInvalid, func(ev *evaluation) (string, bool) {
		// Landing on the main feed means LinkedIn swallowed the link.
		if m, ok := firstMatch(ev.url, ev.rs.Markers[MarkerFeedRedirect]); ok {
			return m, true
		}
		return firstMatch(ev.text, ev.rs.Keywords[KeywordUnavailable])
	}},
	// Payment-form text alone is not disqualifying: legitimate trial pages
	// mention a payment method as a post-trial disclosure. This step only
	// fires when no trial-positive keyword is present.
	{OutcomeRequiresPayment, func(ev *evaluation) (string, bool) {
		m, ok := firstMatch(ev.text, ev.rs.Keywords[KeywordPaymentForm])
		if !ok {
			return "", false
		}
		if _, trial := firstMatch(ev.text, ev.rs.Keywords[KeywordTrialPositive]); trial {
			return "", false
		}
		return m, true
	}},
	{OutcomeValid, func(ev *evaluation) (string, bool) {
		if m, ok := firstMatch(ev.text, ev.rs.Keywords[KeywordTrialPositive]); ok {
			return m, true
		}
		if ev.obs.Selectors[RoleActionButtons] {
			return RoleActionButtons, true
		}
		if m, ok := firstMatch(ev.url, ev.rs.Markers[MarkerRedeemPath]); ok {
			return m, true
		}
		return "", false
	}},
}

// Classify decides the outcome for a single observed page. It is a pure
// function of the observation and the rule set: safe to call concurrently
// from any number of workers, and it never fails on malformed input. When
// nothing recognizable fired the result is UNKNOWN, which callers must treat
// as needing manual review rather than as a negative result.
func Classify(obs *PageObservation, rs *RuleSet) Result {
	ev := &evaluation{
		url:  strings.ToLower(obs.FinalURL),
		text: strings.ToLower(obs.Text),
		obs:  obs,
		rs:   rs,
	}

	for _, d := range policy {
		if evidence, ok := d.match(ev); ok {
			return Result{
				Outcome:    d.outcome,
				Evidence:   evidence,
				FinalURL:   obs.FinalURL,
				Confidence: gradeConfidence(d.outcome, ev),
			}
		}
	}

	return Result{Outcome: OutcomeUnknown, FinalURL: obs.FinalURL}
}

// gradeConfidence rates a WORKING verdict: HIGH when the URL itself is a
// redeem-style link and trial language is on the page, MEDIUM otherwise.
func gradeConfidence(outcome Outcome, ev *evaluation) string {
	if outcome != OutcomeValid {
		return ""
	}
	_, redeemURL := firstMatch(ev.url, ev.rs.Markers[MarkerRedeemPath])
	_, trialText := firstMatch(ev.text, ev.rs.Keywords[KeywordTrialPositive])
	if redeemURL && trialText {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}

// firstMatch returns the first needle contained in haystack. The haystack is
// already lowered; needles are lowered per call so mixed-case rule files
// still match.
func firstMatch(haystack string, needles []string) (string, bool) {
	if haystack == "" {
		return "", false
	}
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(n)) {
			return n, true
		}
	}
	return "", false
}
