// Package cache is the portal's read-through TTL cache. Values are persisted
// in a Store as {"data", "timestamp"} envelopes and loaded through Resource.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Store.Get when no value is stored under the key.
var ErrMiss = errors.New("cache: miss")

// Store persists raw bytes under string keys with an expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Storage keys. Per-address and per-session keys append the id.
const (
	KeyLotteries     = "w3lottery_lottery_data"
	KeyResults       = "w3lottery_lottery_results"
	KeyPastDraws     = "w3lottery_past_draws"
	KeyRecentWinners = "w3lottery_recent_winners"
	KeyPrizePool     = "w3lottery_prize_pool"
	KeyTypes         = "w3lottery_lottery_types"
	KeyIssues        = "w3lottery_lottery_issues"
	KeyTicketsPrefix = "w3lottery_tickets_"
	KeyWalletPrefix  = "w3lottery_wallet_state_"
	KeyUserPrefix    = "w3lottery_user_state_"
)

// TicketsKey is the ticket list key for a buyer address.
func TicketsKey(address string) string { return KeyTicketsPrefix + address }

// WalletKey is the wallet state key for a browser session.
func WalletKey(sessionID string) string { return KeyWalletPrefix + sessionID }

// UserKey is the user state key for a wallet address.
func UserKey(address string) string { return KeyUserPrefix + address }
