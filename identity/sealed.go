package identity

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/zkkb/cryptoutils"
	"github.com/ruteri/zkkb/interfaces"
)

// SealOpts controls what Seal stores.
type SealOpts struct {
	// Phrase is kept inside the sealed payload only when IncludePhrase is set.
	Phrase        string
	IncludePhrase bool
	Params        *cryptoutils.Argon2Params
}

// SealedIdentity is an identity encrypted under a passphrase. The commitment
// and public key stay in the clear so a device can show who it is before unlocking.
type SealedIdentity struct {
	Commitment string                        `json:"commitment"`
	PublicKey  hexutil.Bytes                 `json:"publicKey"`
	Sealed     *cryptoutils.PassphraseSealed `json:"sealed"`
}

type sealedPayload struct {
	Seed   hexutil.Bytes `json:"seed"`
	Phrase string        `json:"phrase,omitempty"`
}

// Seal encrypts id's seed under passphrase.
func Seal(id *Identity, passphrase string, opts SealOpts) (*SealedIdentity, error) {
	payload := sealedPayload{Seed: id.seed[:]}
	if opts.IncludePhrase {
		payload.Phrase = NormalizePhrase(opts.Phrase)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode identity: %w", err)
	}

	params := cryptoutils.DefaultArgon2Params
	if opts.Params != nil {
		params = *opts.Params
	}

	sealed, err := cryptoutils.SealWithPassphrase([]byte(passphrase), data, params)
	if err != nil {
		return nil, err
	}

	return &SealedIdentity{
		Commitment: id.Commitment,
		PublicKey:  append([]byte(nil), id.PublicKey[:]...),
		Sealed:     sealed,
	}, nil
}

// Open decrypts a sealed identity. It returns the phrase when one was stored.
func Open(sealed *SealedIdentity, passphrase string) (*Identity, string, error) {
	if sealed == nil || sealed.Sealed == nil {
		return nil, "", fmt.Errorf("%w: empty sealed identity", interfaces.ErrInvalidInput)
	}

	data, err := cryptoutils.OpenWithPassphrase([]byte(passphrase), sealed.Sealed)
	if err != nil {
		return nil, "", err
	}

	var payload sealedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, "", fmt.Errorf("failed to decode identity: %w", err)
	}

	seed, err := NewSeed(payload.Seed)
	if err != nil {
		return nil, "", err
	}

	id, err := DeriveIdentity(seed)
	if err != nil {
		return nil, "", err
	}
	if id.Commitment != sealed.Commitment {
		return nil, "", fmt.Errorf("%w: sealed commitment does not match seed", interfaces.ErrAuthenticationFailed)
	}

	return id, payload.Phrase, nil
}
