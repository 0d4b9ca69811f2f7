// Package checker orchestrates the link checking run: it reads the input
// links, fans them out to browser workers, classifies each landing page, and
// collects one record per link.
package checker

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/linkurl/linkurl/auth"
	"github.com/linkurl/linkurl/browser"
	"github.com/linkurl/linkurl/config"
	"github.com/linkurl/linkurl/logger"
	"github.com/linkurl/linkurl/report"
	"github.com/linkurl/linkurl/rules"
	"github.com/linkurl/linkurl/storage"
)

// Checker runs link checks across a pool of browser workers.
type Checker struct {
	config *config.Config
	logger *logger.Logger
	pool   *auth.Pool
	auth   *auth.Authenticator
	db     *storage.Database
}

// New creates a checker.
func New(cfg *config.Config, log *logger.Logger, pool *auth.Pool, authenticator *auth.Authenticator, db *storage.Database) *Checker {
	return &Checker{
		config: cfg,
		logger: log.WithModule("checker"),
		pool:   pool,
		auth:   authenticator,
		db:     db,
	}
}

// Run checks all links and returns the records and run stats. Each worker
// owns its own browser and account. Cancelling the context stops feeding new
// links; in-flight checks finish and are recorded.
func (c *Checker) Run(ctx context.Context, links []Link) ([]*report.Record, *report.Stats, error) {
	threads := c.config.Settings.NumThreads
	if threads > len(links) && len(links) > 0 {
		threads = len(links)
	}

	c.logger.Infof("Checking %d links with %d workers", len(links), threads)

	jobs := make(chan Link)
	results := make(chan *report.Record)

	var wg sync.WaitGroup
	for i := 1; i <= threads; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.worker(ctx, id, jobs, results)
		}(i)
	}

	go func() {
		defer close(jobs)
		for _, link := range links {
			select {
			case jobs <- link:
			case <-ctx.Done():
				c.logger.Warn("Run cancelled, remaining links skipped")
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var records []*report.Record
	stats := &report.Stats{}
	for record := range results {
		records = append(records, record)
		stats.Count(record)
		if c.db != nil {
			if _, err := c.db.SaveResult(record); err != nil {
				c.logger.WithError(err).Warn("Failed to persist result")
			}
		}
	}

	return records, stats, nil
}

// worker drives one browser session through its share of the links. If the
// worker cannot obtain a session or account, it still consumes its links and
// reports them as errors so that no link is silently dropped.
func (c *Checker) worker(ctx context.Context, id int, jobs <-chan Link, results chan<- *report.Record) {
	log := c.logger.WithWorker(id)
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	session, account, setupErr := c.setupWorker(log)
	if session != nil {
		defer session.Close()
	}

	for link := range jobs {
		if setupErr != nil {
			results <- errorRecord(link, setupErr)
			continue
		}

		c.pause(ctx, rng)

		record := c.checkOne(session, &account, link, log)
		results <- record
	}
}

// setupWorker launches a browser and logs an account in, rotating through
// the pool until one succeeds.
func (c *Checker) setupWorker(log *logger.Logger) (*browser.Session, config.Account, error) {
	session := browser.NewSession(c.config, log)
	if err := session.Launch(); err != nil {
		return nil, config.Account{}, err
	}

	for {
		account, err := c.pool.Next()
		if err != nil {
			session.Close()
			return nil, config.Account{}, err
		}

		if err := c.auth.Login(session, account); err != nil {
			log.WithError(err).Warnf("Login failed for %s", account.Email)
			c.pool.Bench(account.Email)
			continue
		}

		return session, account, nil
	}
}

// checkOne observes one link and classifies it. A rate-limited outcome
// benches the current account and retries with a fresh one, up to the
// configured retry budget.
func (c *Checker) checkOne(session *browser.Session, account *config.Account, link Link, log *logger.Logger) *report.Record {
	ruleSet := c.config.RuleSet()

	for attempt := 0; ; attempt++ {
		obs, err := session.Observe(link.URL)
		if err != nil {
			log.WithError(err).Warnf("Failed to load %s", link.URL)
			return errorRecord(link, err)
		}

		result := rules.Classify(obs, ruleSet)
		log.LinkResult(link.URL, string(result.Outcome), result.Evidence)

		record := &report.Record{
			Link:       link.URL,
			LineNum:    link.LineNum,
			Outcome:    result.Outcome,
			Evidence:   result.Evidence,
			FinalURL:   result.FinalURL,
			Confidence: result.Confidence,
			Account:    account.Email,
			CheckedAt:  time.Now(),
		}

		if result.Outcome != rules.OutcomeRateLimited || attempt >= c.config.Settings.MaxRetries {
			return record
		}

		// Rate limited: bench this account and retry on a fresh one.
		c.pool.Bench(account.Email)
		next, err := c.pool.Next()
		if err != nil {
			log.Warn("No rested accounts left for retry")
			return record
		}
		if err := c.auth.Login(session, next); err != nil {
			log.WithError(err).Warnf("Retry login failed for %s", next.Email)
			return record
		}
		*account = next
		log.Infof("Retrying %s on %s (attempt %d)", link.URL, next.Email, attempt+2)
	}
}

// pause sleeps a uniform random duration inside the configured delay window,
// returning early when the context is cancelled.
func (c *Checker) pause(ctx context.Context, rng *rand.Rand) {
	min := c.config.Settings.DelayMin
	max := c.config.Settings.DelayMax
	if max <= min {
		max = min
	}

	seconds := min + rng.Float64()*(max-min)
	delay := time.Duration(seconds * float64(time.Second))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// errorRecord builds the record for a link that could not be checked.
func errorRecord(link Link, err error) *report.Record {
	return &report.Record{
		Link:      link.URL,
		LineNum:   link.LineNum,
		Outcome:   rules.OutcomeError,
		Error:     err.Error(),
		CheckedAt: time.Now(),
	}
}
