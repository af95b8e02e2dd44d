package credential

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newHasher() *Hasher { return NewHasher(bcrypt.MinCost) }

func TestHashVerify_RoundTrip(t *testing.T) {
	h := newHasher()

	for _, pw := range []string{"Secret123!", "пароль-Юникод-1", strings.Repeat("x", 64)} {
		hash, err := h.Hash(pw)
		require.NoError(t, err)
		require.NotEqual(t, pw, hash)

		require.True(t, h.Verify(pw, hash))
		require.False(t, h.Verify(pw+"x", hash))
		require.False(t, h.Verify("", hash))
	}
}

func TestHash_IsSalted(t *testing.T) {
	h := newHasher()

	a, err := h.Hash("Secret123!")
	require.NoError(t, err)
	b, err := h.Hash("Secret123!")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestVerify_EmptyOrBrokenHash(t *testing.T) {
	h := newHasher()

	require.False(t, h.Verify("Secret123!", ""))
	require.False(t, h.Verify("Secret123!", "not-a-bcrypt-hash"))
}

func TestHash_TooLongPassword(t *testing.T) {
	// bcrypt ограничивает пароль 72 байтами.
	_, err := newHasher().Hash(strings.Repeat("a", 73))
	require.Error(t, err)
}

func TestNewHasher_CostOutOfRange_UsesDefault(t *testing.T) {
	require.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
	require.Equal(t, bcrypt.DefaultCost, NewHasher(bcrypt.MaxCost+1).cost)
	require.Equal(t, 12, NewHasher(12).cost)
}

func TestResolve_NotChanging_KeepsCurrentHash(t *testing.T) {
	h := newHasher()

	current, err := h.Hash("Secret123!")
	require.NoError(t, err)

	// Пароль в команде игнорируется, если он не меняется.
	got, err := h.Resolve(PasswordChange{Plaintext: "Other123!", Changing: false}, current)
	require.NoError(t, err)
	require.Equal(t, current, got)

	// Повторное сохранение — тот же хэш, без перехэширования.
	again, err := h.Resolve(PasswordChange{}, got)
	require.NoError(t, err)
	require.Equal(t, current, again)
}

func TestResolve_Changing_HashesOnce(t *testing.T) {
	h := newHasher()

	got, err := h.Resolve(PasswordChange{Plaintext: "NewSecret1!", Changing: true}, "old-hash")
	require.NoError(t, err)
	require.NotEqual(t, "old-hash", got)
	require.True(t, h.Verify("NewSecret1!", got))
}

func TestResolve_ChangingWithEmptyPassword(t *testing.T) {
	_, err := newHasher().Resolve(PasswordChange{Changing: true}, "old-hash")
	require.ErrorIs(t, err, ErrEmptyPassword)
}
