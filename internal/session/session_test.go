package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	codec, err := NewCodec("test-signing-key", time.Hour)
	require.NoError(t, err)

	tokenString, err := codec.Encode("user-1", "a@b.example", "tenant-1", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := codec.Decode(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@b.example", claims.Email)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, "admin", claims.Role)
}

// TestPurpose: Validates that session tokens are tamper-evident.
// Scope: Unit Test
// Security: Session integrity
// Expected: Any payload mutation or foreign signature fails verification.
// Test Case ID: SES-01
func TestCodec_Tampering(t *testing.T) {
	codec, err := NewCodec("test-signing-key", time.Hour)
	require.NoError(t, err)

	tokenString, err := codec.Encode("user-1", "a@b.example", "tenant-1", "user")
	require.NoError(t, err)

	t.Run("mutated payload", func(t *testing.T) {
		parts := strings.Split(tokenString, ".")
		require.Len(t, parts, 3)
		// Flip a character inside the claims segment.
		payload := []byte(parts[1])
		if payload[3] == 'A' {
			payload[3] = 'B'
		} else {
			payload[3] = 'A'
		}
		tampered := parts[0] + "." + string(payload) + "." + parts[2]

		_, err := codec.Decode(tampered)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("token signed with a different key", func(t *testing.T) {
		other, err := NewCodec("another-key-entirely", time.Hour)
		require.NoError(t, err)
		foreign, err := other.Encode("user-1", "a@b.example", "tenant-1", "user")
		require.NoError(t, err)

		_, err = codec.Decode(foreign)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := codec.Decode("definitely.not.a-token")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestCodec_Expiry(t *testing.T) {
	codec, err := NewCodec("test-signing-key", -time.Minute)
	require.NoError(t, err)
	// A non-positive lifetime falls back to the default instead of
	// issuing dead-on-arrival tokens.
	tokenString, err := codec.Encode("user-1", "a@b.example", "tenant-1", "user")
	require.NoError(t, err)
	_, err = codec.Decode(tokenString)
	assert.NoError(t, err)
}

func TestNewCodec_RequiresKey(t *testing.T) {
	_, err := NewCodec("", time.Hour)
	assert.ErrorIs(t, err, ErrSigningKeyMissing)
}
