package services

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/logger"
	"github.com/google/uuid"

	"w3lottery/internal/cache"
	"w3lottery/internal/metrics"
	"w3lottery/internal/models"
)

// ChallengePrefix starts every sign-in message.
const ChallengePrefix = "Sign in to W3 Lottery\nNonce: "

// ErrNoChallenge is returned by Connect when the session has no unused nonce.
var ErrNoChallenge = errors.New("no pending sign-in challenge")

// ErrBadSignature is returned by Connect when the signature does not recover
// to the claimed address.
var ErrBadSignature = errors.New("signature does not match address")

// WalletSession holds the sign-in challenge of one browser session.
type WalletSession struct {
	Nonce        string
	LastActivity time.Time
}

// AdminChecker reports whether an address holds the admin role.
type AdminChecker interface {
	IsAdmin(ctx context.Context, address string) bool
}

// WalletService manages browser wallet sessions. Challenges live in memory;
// the connected state is kept in the cache store under the session id.
type WalletService struct {
	mu       sync.RWMutex
	sessions map[string]*WalletSession // Key: session id

	store  cache.Store
	state  *cache.Loader[models.WalletState]
	admins AdminChecker
	now    func() time.Time
}

// NewWalletService creates and initializes a new WalletService. admins may be
// nil, in which case no wallet is reported as admin.
func NewWalletService(store cache.Store, stateTTL time.Duration, admins AdminChecker) *WalletService {
	return &WalletService{
		sessions: make(map[string]*WalletSession),
		store:    store,
		state:    cache.NewLoader[models.WalletState](store, "wallet_state", stateTTL),
		admins:   admins,
		now:      time.Now,
	}
}

// NewSessionID returns a fresh opaque session id.
func NewSessionID() string {
	return uuid.NewString()
}

// getSession returns the session for id, creating one if it doesn't exist.
func (s *WalletService) getSession(id string) *WalletSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[id]
	if !exists {
		session = &WalletSession{}
		s.sessions[id] = session
		metrics.WalletSessions.Set(float64(len(s.sessions)))
	}
	session.LastActivity = s.now()
	return session
}

// Challenge issues a new nonce for the session and returns the message the
// wallet must sign. Any earlier nonce is discarded.
func (s *WalletService) Challenge(sessionID string) string {
	nonce := uuid.NewString()
	session := s.getSession(sessionID)

	s.mu.Lock()
	session.Nonce = nonce
	s.mu.Unlock()

	return ChallengePrefix + nonce
}

// takeNonce returns the session's nonce and clears it.
func (s *WalletService) takeNonce(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ""
	}
	nonce := session.Nonce
	session.Nonce = ""
	session.LastActivity = s.now()
	return nonce
}

// Connect verifies a personal_sign signature over the session's challenge
// and records the wallet as connected. walletType is only logged.
func (s *WalletService) Connect(ctx context.Context, sessionID, walletType, address, signatureHex string) (models.WalletState, error) {
	if !common.IsHexAddress(address) {
		metrics.WalletConnects.WithLabelValues("invalid").Inc()
		return models.WalletState{}, models.Invalid("address", "%q is not a wallet address", address)
	}

	nonce := s.takeNonce(sessionID)
	if nonce == "" {
		metrics.WalletConnects.WithLabelValues("no_challenge").Inc()
		return models.WalletState{}, ErrNoChallenge
	}

	signer, err := RecoverSigner(ChallengePrefix+nonce, signatureHex)
	if err != nil {
		metrics.WalletConnects.WithLabelValues("invalid").Inc()
		return models.WalletState{}, err
	}
	claimed := common.HexToAddress(address)
	if signer != claimed {
		metrics.WalletConnects.WithLabelValues("bad_signature").Inc()
		logger.Warningf("Wallet connect rejected: session=%s claimed=%s recovered=%s", sessionID, claimed.Hex(), signer.Hex())
		return models.WalletState{}, ErrBadSignature
	}

	state := models.WalletState{
		IsConnected: true,
		Address:     claimed.Hex(),
	}
	if s.admins != nil {
		state.IsAdmin = s.admins.IsAdmin(ctx, state.Address)
	}
	if err := s.state.Put(ctx, cache.WalletKey(sessionID), state); err != nil {
		return models.WalletState{}, err
	}

	metrics.WalletConnects.WithLabelValues("ok").Inc()
	logger.Infof("Wallet connected: session=%s wallet=%s address=%s", sessionID, walletType, state.Address)
	return state, nil
}

// Status returns the session's wallet state. A session without a stored
// state is disconnected. force re-evaluates the admin flag.
func (s *WalletService) Status(ctx context.Context, sessionID string, force bool) models.WalletState {
	if sessionID == "" {
		return models.WalletState{}
	}
	s.touch(sessionID)

	state, ok := s.state.Get(ctx, cache.WalletKey(sessionID))
	if !ok || !state.IsConnected || state.Address == "" {
		return models.WalletState{}
	}
	if force && s.admins != nil {
		state.IsAdmin = s.admins.IsAdmin(ctx, state.Address)
		if err := s.state.Put(ctx, cache.WalletKey(sessionID), state); err != nil {
			logger.Warningf("Failed to refresh wallet state: %v", err)
		}
	}
	return state
}

// Disconnect forgets the session's wallet and the user state behind it.
func (s *WalletService) Disconnect(ctx context.Context, sessionID string) error {
	keys := []string{cache.WalletKey(sessionID)}
	if state, ok := s.state.Get(ctx, cache.WalletKey(sessionID)); ok && state.Address != "" {
		keys = append(keys, cache.UserKey(state.Address))
	}
	if err := s.store.Delete(ctx, keys...); err != nil {
		return err
	}
	s.ClearSession(sessionID)
	return nil
}

func (s *WalletService) touch(sessionID string) {
	s.mu.Lock()
	if session, ok := s.sessions[sessionID]; ok {
		session.LastActivity = s.now()
	}
	s.mu.Unlock()
}

// CleanUpInactiveSessions removes sessions idle for longer than maxIdle and
// returns how many were removed.
func (s *WalletService) CleanUpInactiveSessions(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if s.now().Sub(session.LastActivity) > maxIdle {
			delete(s.sessions, id)
			removed++
		}
	}
	metrics.WalletSessions.Set(float64(len(s.sessions)))
	return removed
}

// ClearSession removes the in-memory session.
func (s *WalletService) ClearSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	metrics.WalletSessions.Set(float64(len(s.sessions)))
	logger.Infof("Cleared wallet session: %s", sessionID)
}

// RecoverSigner returns the address that produced an EIP-191 personal_sign
// signature over message. The recovery byte may be 27/28 or 0/1.
func RecoverSigner(message, signatureHex string) (common.Address, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signatureHex), "0x"))
	if err != nil {
		return common.Address{}, models.Invalid("signature", "not hex encoded")
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, models.Invalid("signature", "want %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, models.Invalid("signature", "bad recovery id")
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, models.Invalid("signature", "cannot recover signer: %v", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
