// Package revocation tracks tokens that must be refused before their natural
// expiry (logout) and memoizes tokens already proven expired.
//
// State is process-local: it does not survive a restart and is not shared
// between instances. Entries for tokens past their natural expiry carry no
// meaning and are dropped by Reap; correctness never depends on reaping.
package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"tecbook-auth/internal/logger"
	"tecbook-auth/internal/token"
)

var (
	ErrBlacklisted = errors.New("token: blacklisted")
	ErrEmptyToken  = errors.New("token: empty")
)

const (
	defaultExpiredRetention  = 15 * time.Minute
	defaultMaxExpiredEntries = 10000
)

// Verifier is the subset of token.Codec the manager depends on.
type Verifier interface {
	Verify(raw string) (token.Claims, error)
	Now() time.Time
}

// Stats reports current table sizes for health and metrics endpoints.
type Stats struct {
	Blacklisted   int `json:"blacklistedTokens"`
	ExpiredCached int `json:"expiredTokensCache"`
}

type Manager struct {
	verifier Verifier
	clock    func() time.Time

	expiredRetention  time.Duration
	maxExpiredEntries int

	blMu      sync.RWMutex
	blacklist map[string]time.Time // fingerprint -> natural expiry

	expMu   sync.RWMutex
	expired map[string]time.Time // fingerprint -> evict after
}

type Option func(*Manager)

func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithExpiredCache bounds the expired-token memo by retention and size.
func WithExpiredCache(retention time.Duration, maxEntries int) Option {
	return func(m *Manager) {
		m.expiredRetention = retention
		m.maxExpiredEntries = maxEntries
	}
}

func NewManager(v Verifier, opts ...Option) *Manager {
	m := &Manager{
		verifier:          v,
		clock:             v.Now,
		expiredRetention:  defaultExpiredRetention,
		maxExpiredEntries: defaultMaxExpiredEntries,
		blacklist:         make(map[string]time.Time),
		expired:           make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fingerprint is the SHA-256 hex digest of the raw token string.
// Raw tokens are never retained.
func Fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Check verifies raw and consults revocation state. It returns the claims of
// a usable token, or one of token.ErrMalformed, token.ErrSignatureInvalid,
// token.ErrUnsupported, token.ErrExpired, ErrBlacklisted, ErrEmptyToken.
func (m *Manager) Check(raw string) (token.Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return token.Claims{}, ErrEmptyToken
	}
	fp := Fingerprint(raw)

	if m.knownExpired(fp) {
		return token.Claims{}, token.ErrExpired
	}

	claims, err := m.verifier.Verify(raw)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			m.rememberExpired(fp)
		}
		return token.Claims{}, err
	}

	if m.isBlacklisted(fp) {
		return token.Claims{}, ErrBlacklisted
	}
	return claims, nil
}

// IsValid reports whether raw is usable right now.
func (m *Manager) IsValid(raw string) bool {
	_, err := m.Check(raw)
	return err == nil
}

// Blacklist revokes raw until its natural expiry. Only tokens that still
// verify are recorded: an expired or unverifiable token is already refused
// by Check, so storing it would only grow the table. Calling it twice is
// harmless.
func (m *Manager) Blacklist(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyToken
	}

	claims, err := m.verifier.Verify(raw)
	if err != nil {
		return nil
	}
	fp := Fingerprint(raw)

	m.blMu.Lock()
	if cur, ok := m.blacklist[fp]; !ok || claims.ExpiresAt.After(cur) {
		m.blacklist[fp] = claims.ExpiresAt
	}
	m.blMu.Unlock()
	return nil
}

// IsBlacklisted is a membership check by fingerprint.
func (m *Manager) IsBlacklisted(raw string) bool {
	if raw == "" {
		return false
	}
	return m.isBlacklisted(Fingerprint(raw))
}

func (m *Manager) Stats() Stats {
	m.blMu.RLock()
	bl := len(m.blacklist)
	m.blMu.RUnlock()

	m.expMu.RLock()
	ex := len(m.expired)
	m.expMu.RUnlock()

	return Stats{Blacklisted: bl, ExpiredCached: ex}
}

// Reap drops entries that can no longer affect any decision.
func (m *Manager) Reap() (blacklisted, expired int) {
	now := m.clock()

	m.blMu.Lock()
	for fp, until := range m.blacklist {
		if now.After(until) {
			delete(m.blacklist, fp)
			blacklisted++
		}
	}
	m.blMu.Unlock()

	m.expMu.Lock()
	for fp, until := range m.expired {
		if now.After(until) {
			delete(m.expired, fp)
			expired++
		}
	}
	m.expMu.Unlock()

	return blacklisted, expired
}

// Run reaps every interval until ctx is done. A non-positive interval
// disables the sweep.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bl, ex := m.Reap()
			if bl > 0 || ex > 0 {
				stats := m.Stats()
				logger.Debug("revocation reaped", map[string]any{
					"blacklist_removed": bl,
					"expired_removed":   ex,
					"blacklist_size":    stats.Blacklisted,
					"expired_size":      stats.ExpiredCached,
				})
			}
		}
	}
}

// Reset clears all state. Intended for test isolation.
func (m *Manager) Reset() {
	m.blMu.Lock()
	m.blacklist = make(map[string]time.Time)
	m.blMu.Unlock()

	m.expMu.Lock()
	m.expired = make(map[string]time.Time)
	m.expMu.Unlock()
}

func (m *Manager) isBlacklisted(fp string) bool {
	m.blMu.RLock()
	_, ok := m.blacklist[fp]
	m.blMu.RUnlock()
	return ok
}

func (m *Manager) knownExpired(fp string) bool {
	m.expMu.RLock()
	_, ok := m.expired[fp]
	m.expMu.RUnlock()
	return ok
}

func (m *Manager) rememberExpired(fp string) {
	m.expMu.Lock()
	defer m.expMu.Unlock()

	if _, ok := m.expired[fp]; ok {
		return
	}
	if len(m.expired) >= m.maxExpiredEntries {
		return
	}
	m.expired[fp] = m.clock().Add(m.expiredRetention)
}
