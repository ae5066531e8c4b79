// Package token signs and verifies the bearer tokens issued by this service.
//
// Tokens are HS256 JWTs carrying only the subject (an institutional email),
// iat and exp. Verification is pure: it never touches shared state, so a
// Codec is safe for concurrent use.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeyLength is the minimum HMAC secret size in bytes.
const MinKeyLength = 32

var (
	ErrMalformed        = errors.New("token: malformed")
	ErrSignatureInvalid = errors.New("token: signature invalid")
	ErrUnsupported      = errors.New("token: unsupported")
	ErrExpired          = errors.New("token: expired")
)

func init() {
	// TTLs are configured in milliseconds; keep that precision in iat/exp.
	jwt.TimePrecision = time.Millisecond
}

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Codec struct {
	key    []byte
	ttl    time.Duration
	clock  func() time.Time
	parser *jwt.Parser
}

type Option func(*Codec)

// WithClock overrides the time source used for expiry checks.
func WithClock(clock func() time.Time) Option {
	return func(c *Codec) {
		c.clock = clock
	}
}

// NewCodec builds a codec for the given secret and TTL.
func NewCodec(secret []byte, ttl time.Duration, opts ...Option) (*Codec, error) {
	if len(secret) < MinKeyLength {
		return nil, fmt.Errorf("token: signing key must be at least %d bytes", MinKeyLength)
	}
	if ttl <= 0 {
		return nil, errors.New("token: ttl must be positive")
	}

	c := &Codec{
		key:   append([]byte(nil), secret...),
		ttl:   ttl,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	// jwt treats now == exp as expired; a token stays valid through its
	// expiry instant and is refused only once now is strictly after it.
	c.parser = jwt.NewParser(
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(time.Nanosecond),
		jwt.WithTimeFunc(func() time.Time { return c.clock() }),
	)
	return c, nil
}

// TTL returns the fixed lifetime of issued tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Now returns the codec's notion of the current time.
func (c *Codec) Now() time.Time {
	return c.clock()
}

// Sign issues a token for subject with iat=now and exp=now+TTL.
func (c *Codec) Sign(subject string, now time.Time) (string, error) {
	if subject == "" {
		return "", errors.New("token: empty subject")
	}
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry. On ErrExpired the returned
// Claims are still populated, since the signature was good.
func (c *Codec) Verify(raw string) (Claims, error) {
	var rc jwt.RegisteredClaims
	_, err := c.parser.ParseWithClaims(raw, &rc, c.keyFunc)
	if err != nil {
		kind := classify(err)
		if kind == ErrExpired {
			return toClaims(rc), kind
		}
		return Claims{}, kind
	}

	claims := toClaims(rc)
	if claims.Subject == "" || claims.IssuedAt.IsZero() || !claims.ExpiresAt.After(claims.IssuedAt) {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}

// SelfCheck signs and verifies a throwaway token. A failure means the key
// cannot be trusted and the process must not serve traffic.
func (c *Codec) SelfCheck(subject string) error {
	raw, err := c.Sign(subject, c.clock())
	if err != nil {
		return err
	}
	claims, err := c.Verify(raw)
	if err != nil {
		return fmt.Errorf("token: self-check verify: %w", err)
	}
	if claims.Subject != subject {
		return errors.New("token: self-check subject mismatch")
	}
	return nil
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return c.key, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrUnsupported
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return ErrMalformed
	}
}

func toClaims(rc jwt.RegisteredClaims) Claims {
	c := Claims{Subject: rc.Subject}
	if rc.IssuedAt != nil {
		c.IssuedAt = rc.IssuedAt.Time
	}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c
}
