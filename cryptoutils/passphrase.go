package cryptoutils

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/zkkb/interfaces"
	"golang.org/x/crypto/argon2"
)

const (
	passphraseSaltSize = 16

	// Bounds on parameters read back from a sealed blob.
	maxArgon2Time   = 64
	maxArgon2Memory = 4 * 1024 * 1024 // KiB
)

// Argon2Params are the argon2id cost parameters recorded alongside a sealed blob.
type Argon2Params struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"`
	Threads uint8  `json:"threads"`
}

// DefaultArgon2Params matches the interactive profile used for at-rest sealing.
var DefaultArgon2Params = Argon2Params{Time: 1, Memory: 64 * 1024, Threads: 4}

// PassphraseSealed is data sealed under a passphrase-derived key.
type PassphraseSealed struct {
	Params     Argon2Params  `json:"params"`
	Salt       hexutil.Bytes `json:"salt"`
	Nonce      hexutil.Bytes `json:"nonce"`
	Ciphertext hexutil.Bytes `json:"ciphertext"`
}

// Validate rejects parameters argon2 would panic on or that exceed the accepted cost.
func (p Argon2Params) Validate() error {
	switch {
	case p.Time == 0 || p.Time > maxArgon2Time:
		return fmt.Errorf("%w: argon2 time %d", interfaces.ErrInvalidInput, p.Time)
	case p.Threads == 0:
		return fmt.Errorf("%w: argon2 threads must be positive", interfaces.ErrInvalidInput)
	case p.Memory < 8*uint32(p.Threads) || p.Memory > maxArgon2Memory:
		return fmt.Errorf("%w: argon2 memory %d KiB", interfaces.ErrInvalidInput, p.Memory)
	}
	return nil
}

// DerivePassphraseKey derives a 256-bit key from a passphrase using argon2id.
func DerivePassphraseKey(passphrase []byte, salt []byte, params Argon2Params) (SymmetricKey, error) {
	var key SymmetricKey
	if err := params.Validate(); err != nil {
		return key, err
	}
	if len(salt) != passphraseSaltSize {
		return key, fmt.Errorf("%w: salt must be %d bytes", interfaces.ErrInvalidInput, passphraseSaltSize)
	}
	copy(key[:], argon2.IDKey(passphrase, salt, params.Time, params.Memory, params.Threads, SymmetricKeySize))
	return key, nil
}

// SealWithPassphrase encrypts data under an argon2id key derived from passphrase and a fresh salt.
func SealWithPassphrase(passphrase []byte, data []byte, params Argon2Params) (*PassphraseSealed, error) {
	salt := make([]byte, passphraseSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := DerivePassphraseKey(passphrase, salt, params)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	ciphertext, nonce, err := Encrypt(key, data)
	if err != nil {
		return nil, err
	}

	return &PassphraseSealed{
		Params:     params,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// OpenWithPassphrase reverses SealWithPassphrase. A wrong passphrase yields
// ErrAuthenticationFailed, unusable stored parameters ErrInvalidInput.
func OpenWithPassphrase(passphrase []byte, sealed *PassphraseSealed) ([]byte, error) {
	if sealed == nil {
		return nil, fmt.Errorf("%w: nothing sealed", interfaces.ErrInvalidInput)
	}
	key, err := DerivePassphraseKey(passphrase, sealed.Salt, sealed.Params)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	return Decrypt(key, sealed.Ciphertext, sealed.Nonce)
}
