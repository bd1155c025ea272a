package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	Init("test-secret-with-enough-length", 5)

	token, err := GenerateAccessToken("U1001", "agent")
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "U1001", claims.UserID)
	assert.Equal(t, "agent", claims.Role)
	assert.Equal(t, "access_token", claims.Subject)
}

func TestParseTokenRejectsOtherSecret(t *testing.T) {
	Init("secret-one-secret-one-secret-one", 5)
	token, err := GenerateAccessToken("U1", "user")
	require.NoError(t, err)

	Init("secret-two-secret-two-secret-two", 5)
	_, err = ParseToken(token)
	assert.Error(t, err)
}
