package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	s := NewSealerWithPassphrase("test")

	sealed, err := s.Seal("sk-test-123")
	require.NoError(t, err)
	require.NotContains(t, sealed, "sk-test-123")

	again, err := s.Seal("sk-test-123")
	require.NoError(t, err)
	require.NotEqual(t, sealed, again, "nonce must differ per seal")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "sk-test-123", plain)
}

func TestOpenWithOtherKeyFails(t *testing.T) {
	sealed, err := NewSealerWithPassphrase("a").Seal("secret")
	require.NoError(t, err)

	_, err = NewSealerWithPassphrase("b").Open(sealed)
	require.Error(t, err)
}

func TestOpenRejectsGarbage(t *testing.T) {
	s := NewSealer("credential")
	_, err := s.Open("not base64 !!")
	require.Error(t, err)

	_, err = s.Open("AAAA")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "too short"))
}
