package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mehmetcc/todox/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestCodec(t *testing.T, ttl time.Duration, opts ...Option) *Codec {
	t.Helper()
	c, err := NewCodec(&config.JWTConfig{
		Secret:   []byte(testSecret),
		Alg:      config.AlgHS256,
		TokenTTL: ttl,
	}, opts...)
	require.NoError(t, err)
	return c
}

func TestNewCodecRejectsBadConfig(t *testing.T) {
	_, err := NewCodec(nil)
	assert.Error(t, err)

	_, err = NewCodec(&config.JWTConfig{Secret: []byte("short")})
	assert.ErrorIs(t, err, config.ErrShortSecret)

	_, err = NewCodec(&config.JWTConfig{Secret: []byte(testSecret), Alg: "none"})
	assert.ErrorIs(t, err, config.ErrUnsupportedAlg)

	_, err = NewCodec(&config.JWTConfig{Secret: []byte(testSecret), TokenTTL: -time.Second})
	assert.Error(t, err)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	c := newTestCodec(t, time.Hour)

	for _, userID := range []string{"42", "3f1c0c1e-6f6e-4a43-9d8c-2b8f7f3c9a10", "ünïcødé user"} {
		res, err := c.Issue(Claims{UserID: userID})
		require.NoError(t, err)
		require.NotEmpty(t, res.Token)

		claims, err := c.Verify(res.Token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		require.NotNil(t, claims.ExpiresAt)
		assert.True(t, claims.ExpiresAt.Time.Equal(res.ExpiresAt))
	}
}

func TestIssueDoesNotMutateInput(t *testing.T) {
	c := newTestCodec(t, time.Hour)
	in := Claims{UserID: "42"}

	_, err := c.Issue(in)
	require.NoError(t, err)
	assert.Nil(t, in.IssuedAt)
	assert.Nil(t, in.ExpiresAt)
}

func TestIssueRequiresUserID(t *testing.T) {
	c := newTestCodec(t, time.Hour)
	_, err := c.Issue(Claims{})
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestIssueWithoutTTLHasNoExpiry(t *testing.T) {
	c := newTestCodec(t, 0)

	res, err := c.Issue(Claims{UserID: "42"})
	require.NoError(t, err)
	assert.True(t, res.ExpiresAt.IsZero())

	claims, err := c.Verify(res.Token)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
}

func TestVerifyDetectsEveryBitFlip(t *testing.T) {
	c := newTestCodec(t, time.Hour)
	res, err := c.Issue(Claims{UserID: "42"})
	require.NoError(t, err)

	original := []byte(res.Token)
	for i := range original {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), original...)
			tampered[i] ^= 1 << bit

			_, err := c.Verify(string(tampered))
			if err == nil {
				t.Fatalf("flipping bit %d of byte %d was not detected", bit, i)
			}
		}
	}
}

func TestVerifyMalformed(t *testing.T) {
	c := newTestCodec(t, time.Hour)

	for _, in := range []string{"", "garbage", "a.b", "a.b.c", "...", "a.b.c.d"} {
		_, err := c.Verify(in)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", in)
	}
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	c := newTestCodec(t, time.Hour)
	other, err := NewCodec(&config.JWTConfig{Secret: []byte(strings.Repeat("x", 32)), TokenTTL: time.Hour})
	require.NoError(t, err)

	res, err := other.Issue(Claims{UserID: "42"})
	require.NoError(t, err)

	_, err = c.Verify(res.Token)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifyPinsAlgorithm(t *testing.T) {
	c := newTestCodec(t, time.Hour)
	claims := Claims{UserID: "42"}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = c.Verify(none)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = c.Verify(hs512)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifyRejectsMissingUserID(t *testing.T) {
	c := newTestCodec(t, time.Hour)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "42"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = c.Verify(signed)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVerifyExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := newTestCodec(t, time.Hour, WithClock(clock))

	res, err := c.Issue(Claims{UserID: "42"})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), res.ExpiresAt)

	now = now.Add(30 * time.Minute)
	_, err = c.Verify(res.Token)
	require.NoError(t, err)

	now = now.Add(31 * time.Minute)
	_, err = c.Verify(res.Token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsFutureTokens(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, time.Hour, WithClock(func() time.Time { return now }))

	future := Claims{
		UserID: "42",
		RegisteredClaims: jwt.RegisteredClaims{
			NotBefore: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, future).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = c.Verify(signed)
	assert.ErrorIs(t, err, ErrExpired)
}
