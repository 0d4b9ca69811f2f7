package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/linkurl/linkurl/config"
	"github.com/linkurl/linkurl/logger"
)

// ErrAllAccountsResting is returned by Next when every account in the pool
// is inside its rest window.
var ErrAllAccountsResting = errors.New("all accounts are resting")

// pooledAccount tracks one account's rest state.
type pooledAccount struct {
	config.Account
	restingUntil time.Time
}

// Pool hands out accounts round-robin, skipping any that were benched after
// hitting a rate limit. Safe for concurrent use by checker workers.
type Pool struct {
	mu           sync.Mutex
	accounts     []*pooledAccount
	next         int
	restDuration time.Duration
	logger       *logger.Logger
	now          func() time.Time
}

// NewPool creates a pool over the configured accounts. restDuration is how
// long a benched account sits out before it is eligible again.
func NewPool(accounts []config.Account, restDuration time.Duration, log *logger.Logger) *Pool {
	pooled := make([]*pooledAccount, len(accounts))
	for i, a := range accounts {
		pooled[i] = &pooledAccount{Account: a}
	}

	return &Pool{
		accounts:     pooled,
		restDuration: restDuration,
		logger:       log.WithModule("auth"),
		now:          time.Now,
	}
}

// Size returns the number of accounts in the pool.
func (p *Pool) Size() int {
	return len(p.accounts)
}

// Next returns the next account that is not resting. It walks the pool at
// most once, so a fully benched pool fails fast instead of spinning.
func (p *Pool) Next() (config.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for i := 0; i < len(p.accounts); i++ {
		candidate := p.accounts[p.next]
		p.next = (p.next + 1) % len(p.accounts)

		if candidate.restingUntil.After(now) {
			continue
		}
		return candidate.Account, nil
	}

	return config.Account{}, ErrAllAccountsResting
}

// Bench puts the account with the given email into its rest window. Unknown
// emails are ignored.
func (p *Pool) Bench(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, a := range p.accounts {
		if a.Email == email {
			a.restingUntil = p.now().Add(p.restDuration)
			p.logger.AccountEvent(email, "benched")
			return
		}
	}
}

// Resting reports how many accounts are currently inside a rest window.
func (p *Pool) Resting() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	count := 0
	for _, a := range p.accounts {
		if a.restingUntil.After(now) {
			count++
		}
	}
	return count
}
