package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
    tok, err := NewAccessToken("s3cret", 42, "ADMIN", 15)
    require.NoError(t, err)
    assert.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Exp, 5*time.Second)

    claims, err := ParseAccessToken("s3cret", tok.Token)
    require.NoError(t, err)
    assert.Equal(t, Claims{UserID: 42, Role: "ADMIN"}, claims)

    _, err = ParseAccessToken("other", tok.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenRejects(t *testing.T) {
    expired, err := NewAccessToken("s3cret", 1, "CUSTOMER", -1)
    require.NoError(t, err)
    _, err = ParseAccessToken("s3cret", expired.Token)
    assert.ErrorIs(t, err, ErrInvalidToken, "expired")

    noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
        "role": "CUSTOMER", "exp": time.Now().Add(time.Hour).Unix(),
    }).SignedString([]byte("s3cret"))
    require.NoError(t, err)
    _, err = ParseAccessToken("s3cret", noSub)
    assert.ErrorIs(t, err, ErrInvalidToken, "missing subject")

    numeric, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
        "sub": 7, "role": "CUSTOMER", "exp": time.Now().Add(time.Hour).Unix(),
    }).SignedString([]byte("s3cret"))
    require.NoError(t, err)
    claims, err := ParseAccessToken("s3cret", numeric)
    require.NoError(t, err)
    assert.EqualValues(t, 7, claims.UserID)

    _, err = ParseAccessToken("s3cret", "garbage")
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokens(t *testing.T) {
    a, err := NewRefreshToken(7)
    require.NoError(t, err)
    b, err := NewRefreshToken(7)
    require.NoError(t, err)

    assert.Len(t, a.Raw, 96)
    assert.NotEqual(t, a.Raw, b.Raw)
    assert.Len(t, HashRefreshRaw(a.Raw), 64)
    assert.Equal(t, HashRefreshRaw(a.Raw), HashRefreshRaw(a.Raw))
    assert.NotEqual(t, a.Raw, HashRefreshRaw(a.Raw))
}

func TestPasswordHashing(t *testing.T) {
    hash, err := HashPassword("hunter2", bcrypt.MinCost)
    require.NoError(t, err)
    assert.True(t, VerifyPassword(hash, "hunter2"))
    assert.False(t, VerifyPassword(hash, "hunter3"))
    assert.False(t, VerifyPassword("not-a-hash", "hunter2"))
}
