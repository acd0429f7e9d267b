package services

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w3lottery/internal/cache"
	"w3lottery/internal/models"
)

type staticAdmins map[string]bool

func (a staticAdmins) IsAdmin(_ context.Context, address string) bool {
	return a[strings.ToLower(address)]
}

// personalSign signs message the way wallets do, with v in {27, 28}.
func personalSign(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return "0x" + hex.EncodeToString(sig)
}

func newTestWallet(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestWalletService_Connect(t *testing.T) {
	ctx := context.Background()
	key, addr := newTestWallet(t)

	t.Run("valid signature connects", func(t *testing.T) {
		store := cache.NewMemoryStore()
		s := NewWalletService(store, 2*time.Hour, staticAdmins{strings.ToLower(addr): true})

		msg := s.Challenge("sess-1")
		require.True(t, strings.HasPrefix(msg, ChallengePrefix))

		state, err := s.Connect(ctx, "sess-1", "metamask", strings.ToLower(addr), personalSign(t, key, msg))
		require.NoError(t, err)
		assert.True(t, state.IsConnected)
		assert.Equal(t, addr, state.Address)
		assert.True(t, state.IsAdmin)

		assert.Equal(t, state, s.Status(ctx, "sess-1", false))
	})

	t.Run("nonce is single use", func(t *testing.T) {
		s := NewWalletService(cache.NewMemoryStore(), time.Hour, nil)
		msg := s.Challenge("sess-2")
		sig := personalSign(t, key, msg)

		_, err := s.Connect(ctx, "sess-2", "metamask", addr, sig)
		require.NoError(t, err)
		_, err = s.Connect(ctx, "sess-2", "metamask", addr, sig)
		assert.ErrorIs(t, err, ErrNoChallenge)
	})

	t.Run("signature from another key is rejected", func(t *testing.T) {
		s := NewWalletService(cache.NewMemoryStore(), time.Hour, nil)
		other, _ := newTestWallet(t)
		msg := s.Challenge("sess-3")

		_, err := s.Connect(ctx, "sess-3", "metamask", addr, personalSign(t, other, msg))
		assert.ErrorIs(t, err, ErrBadSignature)
		assert.False(t, s.Status(ctx, "sess-3", false).IsConnected)
	})

	t.Run("stale challenge is rejected", func(t *testing.T) {
		s := NewWalletService(cache.NewMemoryStore(), time.Hour, nil)
		old := s.Challenge("sess-4")
		s.Challenge("sess-4")

		_, err := s.Connect(ctx, "sess-4", "metamask", addr, personalSign(t, key, old))
		assert.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("no challenge", func(t *testing.T) {
		s := NewWalletService(cache.NewMemoryStore(), time.Hour, nil)
		_, err := s.Connect(ctx, "sess-5", "metamask", addr, "0x00")
		assert.ErrorIs(t, err, ErrNoChallenge)
	})

	t.Run("malformed input", func(t *testing.T) {
		s := NewWalletService(cache.NewMemoryStore(), time.Hour, nil)
		_, err := s.Connect(ctx, "sess-6", "metamask", "not-an-address", "0x00")
		assert.ErrorIs(t, err, models.ErrInvalidInput)

		s.Challenge("sess-6")
		_, err = s.Connect(ctx, "sess-6", "metamask", addr, "0xzz")
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}

func TestRecoverSigner(t *testing.T) {
	key, addr := newTestWallet(t)
	msg := ChallengePrefix + "abc"

	t.Run("v of 27/28", func(t *testing.T) {
		got, err := RecoverSigner(msg, personalSign(t, key, msg))
		require.NoError(t, err)
		assert.Equal(t, addr, got.Hex())
	})

	t.Run("v of 0/1", func(t *testing.T) {
		sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
		require.NoError(t, err)
		got, err := RecoverSigner(msg, hex.EncodeToString(sig))
		require.NoError(t, err)
		assert.Equal(t, addr, got.Hex())
	})

	t.Run("short signature", func(t *testing.T) {
		_, err := RecoverSigner(msg, "0x1234")
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}

func TestWalletService_Disconnect(t *testing.T) {
	ctx := context.Background()
	key, addr := newTestWallet(t)
	store := cache.NewMemoryStore()
	s := NewWalletService(store, time.Hour, nil)

	msg := s.Challenge("sess")
	_, err := s.Connect(ctx, "sess", "walletconnect", addr, personalSign(t, key, msg))
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, cache.UserKey(addr), []byte(`{}`), time.Hour))

	require.NoError(t, s.Disconnect(ctx, "sess"))

	assert.False(t, s.Status(ctx, "sess", false).IsConnected)
	_, err = store.Get(ctx, cache.UserKey(addr))
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestWalletService_CleanUpInactiveSessions(t *testing.T) {
	s := NewWalletService(cache.NewMemoryStore(), time.Hour, nil)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Challenge("idle")
	now = now.Add(30 * time.Minute)
	s.Challenge("active")
	now = now.Add(40 * time.Minute)

	assert.Equal(t, 1, s.CleanUpInactiveSessions(time.Hour))

	s.mu.RLock()
	_, idle := s.sessions["idle"]
	_, active := s.sessions["active"]
	s.mu.RUnlock()
	assert.False(t, idle)
	assert.True(t, active)
}

func TestSessionTokens(t *testing.T) {
	tokens := NewSessionTokens("0123456789abcdef", time.Hour)

	tok, err := tokens.Issue("sid-1")
	require.NoError(t, err)

	sid, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", sid)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewSessionTokens("another-secret-value", time.Hour).Parse(tok)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewSessionTokens("0123456789abcdef", time.Hour)
		expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := expired.Parse(tok)
		assert.Error(t, err)
	})
}
