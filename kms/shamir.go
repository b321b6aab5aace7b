package kms

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/shamir"
	"github.com/ruteri/zkkb/cryptoutils"
	"github.com/ruteri/zkkb/identity"
	"github.com/ruteri/zkkb/interfaces"
)

// GuardianShare is one Shamir share of a seed sealed to a guardian's X25519 key.
type GuardianShare struct {
	Guardian string                `json:"guardian"`
	Share    interfaces.WrappedKey `json:"share"`
}

// SplitSeed splits seed into one share per guardian public key, any threshold
// of which reconstruct it. Each share is sealed to its guardian.
func SplitSeed(seed identity.Seed, threshold int, guardians map[string][]byte) ([]GuardianShare, error) {
	if threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}
	if len(guardians) < threshold {
		return nil, errors.New("total shares must be at least equal to threshold")
	}

	shares, err := shamir.Split(seed[:], len(guardians), threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split seed: %w", err)
	}

	out := make([]GuardianShare, 0, len(guardians))
	i := 0
	for name, pub := range guardians {
		wrapped, err := cryptoutils.WrapKey(shares[i], pub)
		if err != nil {
			return nil, fmt.Errorf("failed to seal share for %s: %w", name, err)
		}
		out = append(out, GuardianShare{Guardian: name, Share: wrapped})
		i++
	}
	return out, nil
}

// OpenShare is run by a guardian to recover the plaintext share sealed to them.
func OpenShare(share GuardianShare, guardianPrivateKey []byte) ([]byte, error) {
	return cryptoutils.UnwrapKey(share.Share, guardianPrivateKey)
}

// SeedRecovery collects plaintext shares until the threshold is met, then
// reconstructs the seed and the identity behind it.
//
// The seed is kept only in memory; received shares are wiped once the
// identity is recovered.
type SeedRecovery struct {
	mu             sync.Mutex
	threshold      int
	expected       string
	receivedShares map[byte][]byte
	recovered      *identity.Identity
}

// NewSeedRecovery starts a recovery. When expectedCommitment is non-empty the
// reconstructed identity must match it.
func NewSeedRecovery(threshold int, expectedCommitment string) *SeedRecovery {
	return &SeedRecovery{
		threshold:      threshold,
		expected:       expectedCommitment,
		receivedShares: make(map[byte][]byte),
	}
}

// SubmitShare adds a share. Shares are keyed by their evaluation point, so
// submitting the same share twice counts once.
func (r *SeedRecovery) SubmitShare(share []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recovered != nil {
		return errors.New("seed already recovered")
	}
	if len(share) != identity.SeedSize+1 {
		return fmt.Errorf("%w: share must be %d bytes", interfaces.ErrInvalidInput, identity.SeedSize+1)
	}

	r.receivedShares[share[len(share)-1]] = append([]byte(nil), share...)
	return r.tryReconstruct()
}

func (r *SeedRecovery) tryReconstruct() error {
	if len(r.receivedShares) < r.threshold {
		return nil
	}

	parts := make([][]byte, 0, len(r.receivedShares))
	for _, share := range r.receivedShares {
		parts = append(parts, share)
	}

	secret, err := shamir.Combine(parts)
	if err != nil {
		return fmt.Errorf("failed to combine shares: %w", err)
	}

	seed, err := identity.NewSeed(secret)
	if err != nil {
		return err
	}
	id, err := identity.DeriveIdentity(seed)
	if err != nil {
		return err
	}
	if r.expected != "" && id.Commitment != r.expected {
		return fmt.Errorf("%w: recovered identity does not match", interfaces.ErrAuthenticationFailed)
	}

	for k, share := range r.receivedShares {
		for i := range share {
			share[i] = 0
		}
		delete(r.receivedShares, k)
	}
	r.recovered = id
	return nil
}

// Recovered returns the identity once the threshold has been met.
func (r *SeedRecovery) Recovered() (*identity.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recovered, r.recovered != nil
}

// Received returns how many distinct shares are held.
func (r *SeedRecovery) Received() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.receivedShares)
}
