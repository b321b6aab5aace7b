package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/zkkb/cryptoutils"
	"github.com/ruteri/zkkb/interfaces"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/group/edwards25519"
)

const (
	// SeedSize is the length of a phrase-derived seed.
	SeedSize = 64

	x25519Info = "zkkb-x25519"
	secretInfo = "zkkb-identity-secret"
)

// Suite is the group all commitments, proofs and nullifiers live in.
var Suite = edwards25519.NewBlakeSHA256Ed25519()

// Seed is the root secret of an identity.
type Seed [SeedSize]byte

// NewSeed copies a raw seed, failing fast on the wrong length.
func NewSeed(raw []byte) (Seed, error) {
	var seed Seed
	if len(raw) != SeedSize {
		return seed, fmt.Errorf("%w: seed must be %d bytes, got %d", interfaces.ErrInvalidInput, SeedSize, len(raw))
	}
	copy(seed[:], raw)
	return seed, nil
}

// Identity is a member's derived key material.
type Identity struct {
	// PublicKey receives wrapped board keys.
	PublicKey [cryptoutils.X25519KeySize]byte
	// PrivateKey unwraps board keys. Never leaves the device.
	PrivateKey [cryptoutils.X25519KeySize]byte
	// Secret seeds the scalar behind Commitment.
	Secret [32]byte
	// Commitment is the hex encoding of Secret·B, safe to publish.
	Commitment string

	seed Seed
}

// PublicIdentity is what a member shares with a board owner to be invited.
type PublicIdentity struct {
	Commitment string        `json:"commitment"`
	PublicKey  hexutil.Bytes `json:"publicKey"`
}

// DeriveIdentity deterministically derives the keypair, secret and
// commitment of seed. It is pure: the same seed always yields the same identity.
func DeriveIdentity(seed Seed) (*Identity, error) {
	privRaw, err := cryptoutils.HKDF(seed[:32], nil, x25519Info, cryptoutils.X25519KeySize)
	if err != nil {
		return nil, err
	}
	kp, err := cryptoutils.X25519KeyPairFromPrivate(privRaw)
	if err != nil {
		return nil, err
	}

	secretRaw, err := cryptoutils.HKDF(seed[:32], nil, secretInfo, 32)
	if err != nil {
		return nil, err
	}

	id := &Identity{
		PublicKey:  kp.PublicKey,
		PrivateKey: kp.PrivateKey,
		seed:       seed,
	}
	copy(id.Secret[:], secretRaw)

	commitment, err := CommitmentOf(id.SecretScalar())
	if err != nil {
		return nil, err
	}
	id.Commitment = commitment

	return id, nil
}

// CreateRandomIdentity derives an identity from a fresh random seed.
func CreateRandomIdentity() (*Identity, error) {
	var seed Seed
	if _, err := io.ReadFull(rand.Reader, seed[:]); err != nil {
		return nil, fmt.Errorf("failed to generate seed: %w", err)
	}
	return DeriveIdentity(seed)
}

// Seed returns the seed the identity was derived from.
func (id *Identity) Seed() Seed {
	return id.seed
}

// SecretScalar maps Secret onto the group.
func (id *Identity) SecretScalar() kyber.Scalar {
	return Suite.Scalar().Pick(Suite.XOF(id.Secret[:]))
}

// Public returns the shareable half of the identity.
func (id *Identity) Public() PublicIdentity {
	return PublicIdentity{
		Commitment: id.Commitment,
		PublicKey:  append([]byte(nil), id.PublicKey[:]...),
	}
}

// Zero wipes private material held by the identity.
func (id *Identity) Zero() {
	for i := range id.PrivateKey {
		id.PrivateKey[i] = 0
	}
	for i := range id.Secret {
		id.Secret[i] = 0
	}
	for i := range id.seed {
		id.seed[i] = 0
	}
}

// CommitmentOf returns the hex commitment for a secret scalar.
func CommitmentOf(secret kyber.Scalar) (string, error) {
	raw, err := Suite.Point().Mul(secret, nil).MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to marshal commitment: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// ParseCommitment decodes a hex commitment into a group element.
func ParseCommitment(commitment string) (kyber.Point, error) {
	raw, err := hex.DecodeString(commitment)
	if err != nil {
		return nil, fmt.Errorf("%w: commitment is not hex: %v", interfaces.ErrInvalidInput, err)
	}
	point := Suite.Point()
	if err := point.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%w: commitment is not a group element: %v", interfaces.ErrInvalidInput, err)
	}
	return point, nil
}
