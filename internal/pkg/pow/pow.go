/*
Package pow implements an optional Proof-of-Work gate in front of token issuance.

A client fetches a nonce, searches for a counter such that SHA-256(nonce+counter)
starts with the configured number of hex zeros, and trades the solution for a
short-lived proof token. Each proof token authorizes exactly one gated request.
*/
package pow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"roomtoken/internal/pkg/errs"
	"roomtoken/internal/pkg/randx"
	"roomtoken/internal/pkg/resp"
)

const (
	// TokenHeaderKey is the HTTP header key used by the client to send the Proof Token.
	TokenHeaderKey = "X-PoW-Token"

	// TokenQueryKey is the query parameter alternative to TokenHeaderKey.
	TokenQueryKey = "pow_token"

	// ProofTokenDuration is the validity period of a proof token.
	ProofTokenDuration = 30 * time.Second

	// NonceExpiryDuration is the validity period for the challenge Nonce.
	NonceExpiryDuration = 5 * time.Minute
)

var (
	ErrNonceInvalid        = errors.New("nonce expired or invalid")
	ErrDifficultyNotMet    = errors.New("proof does not meet difficulty requirement")
	ErrNonceAlreadyClaimed = errors.New("nonce consumed by concurrent request")
)

// Manager tracks outstanding nonces and unspent proof tokens. It is safe for concurrent use.
type Manager struct {
	// difficulty is the required number of leading hex zeros of the hash.
	difficulty int

	// nonceStore maps active nonces to their expiry.
	nonceStore map[string]time.Time

	// tokenStore maps unspent proof tokens to their expiry.
	tokenStore map[string]time.Time

	mu  sync.Mutex
	now func() time.Time

	done chan struct{}
}

// NewManager creates a Manager and starts its cleanup goroutine, which exits when ctx is done.
func NewManager(ctx context.Context, difficulty int) *Manager {
	m := &Manager{
		difficulty: difficulty,
		nonceStore: make(map[string]time.Time),
		tokenStore: make(map[string]time.Time),
		now:        time.Now,
		done:       make(chan struct{}),
	}

	go m.cleanupExpiredEntries(ctx)

	return m
}

// Difficulty returns the number of leading hex zeros a solution needs.
func (m *Manager) Difficulty() int {
	return m.difficulty
}

// Done is closed once the cleanup goroutine has exited.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// GenerateNonce issues a new challenge nonce.
func (m *Manager) GenerateNonce() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	nonce := randx.Nonce()
	m.nonceStore[nonce] = m.now().Add(NonceExpiryDuration)
	return nonce
}

// Solves reports whether counter solves nonce at difficulty.
func Solves(nonce, counter string, difficulty int) bool {
	hash := sha256.Sum256([]byte(nonce + counter))
	return strings.HasPrefix(hex.EncodeToString(hash[:]), strings.Repeat("0", difficulty))
}

// ValidateProof checks a solution and, on success, consumes the nonce and returns a
// single-use proof token.
func (m *Manager) ValidateProof(nonce, counter string) (string, error) {
	m.mu.Lock()
	expiryTime, ok := m.nonceStore[nonce]
	m.mu.Unlock()

	if !ok || m.now().After(expiryTime) {
		return "", ErrNonceInvalid
	}

	if !Solves(nonce, counter, m.difficulty) {
		return "", ErrDifficultyNotMet
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, stillExists := m.nonceStore[nonce]; !stillExists {
		return "", ErrNonceAlreadyClaimed
	}

	delete(m.nonceStore, nonce)

	token := randx.Nonce()
	m.tokenStore[token] = m.now().Add(ProofTokenDuration)
	return token, nil
}

// SpendProofToken consumes the proof token carried by r (header or query parameter).
// It returns false when the token is missing, unknown, expired or already spent.
func (m *Manager) SpendProofToken(r *http.Request) bool {
	token := r.Header.Get(TokenHeaderKey)
	if token == "" {
		token = r.URL.Query().Get(TokenQueryKey)
	}

	if token == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiryTime, ok := m.tokenStore[token]
	if !ok {
		return false
	}
	delete(m.tokenStore, token)

	return !m.now().After(expiryTime)
}

// Middleware lets a request through only when it carries an unspent proof token.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.SpendProofToken(r) {
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeRequired))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Manager) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for nonce, expiry := range m.nonceStore {
		if now.After(expiry) {
			delete(m.nonceStore, nonce)
		}
	}
	for token, expiry := range m.tokenStore {
		if now.After(expiry) {
			delete(m.tokenStore, token)
		}
	}
}

func (m *Manager) cleanupExpiredEntries(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}
