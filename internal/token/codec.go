package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mehmetcc/todox/internal/config"
)

// Codec issues and verifies HS256 session tokens. It holds only immutable
// state and is safe for concurrent use.
type Codec struct {
	secret     []byte
	ttl        time.Duration
	signingAlg jwt.SigningMethod
	parser     *jwt.Parser
	now        func() time.Time
}

type Option func(*Codec)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func NewCodec(cfg *config.JWTConfig, opts ...Option) (*Codec, error) {
	if cfg == nil {
		return nil, errors.New("jwt config is nil")
	}
	if len(cfg.Secret) < config.MinSecretLength {
		return nil, config.ErrShortSecret
	}
	if cfg.Alg != "" && cfg.Alg != config.AlgHS256 {
		return nil, config.ErrUnsupportedAlg
	}
	if cfg.TokenTTL < 0 {
		return nil, fmt.Errorf("negative token ttl %s", cfg.TokenTTL)
	}

	c := &Codec{
		secret:     append([]byte(nil), cfg.Secret...),
		ttl:        cfg.TokenTTL,
		signingAlg: jwt.SigningMethodHS256,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{c.signingAlg.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

// Issue signs a copy of claims, stamping iat and nbf, plus exp when the codec
// has a ttl.
func (c *Codec) Issue(claims Claims) (*IssueResult, error) {
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}

	issuedAt := c.now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		NotBefore: jwt.NewNumericDate(issuedAt),
	}

	var expiresAt time.Time
	if c.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(issuedAt.Add(c.ttl))
		expiresAt = claims.ExpiresAt.Time
	}

	signed, err := jwt.NewWithClaims(c.signingAlg, claims).SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	return &IssueResult{
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks the signature with the algorithm pinned to HS256 and returns
// the decoded claims. Errors are ErrMalformed, ErrSignatureMismatch or
// ErrExpired.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	var claims Claims
	tkn, err := c.parser.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != c.signingAlg {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !tkn.Valid {
		return nil, ErrSignatureMismatch
	}
	if claims.UserID == "" {
		return nil, ErrMalformed
	}
	return &claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	case errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
