package identity

import (
	"fmt"
	"strings"

	"github.com/ruteri/zkkb/interfaces"
	"github.com/tyler-smith/go-bip39"
)

// PhraseWords is the number of words in a recovery phrase (256 bits of entropy).
const PhraseWords = 24

// GeneratePhrase returns a fresh 24-word recovery phrase.
func GeneratePhrase() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// NormalizePhrase lowercases the phrase and collapses whitespace.
func NormalizePhrase(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}

// ValidatePhrase checks word count, wordlist membership and checksum.
func ValidatePhrase(phrase string) error {
	normalized := NormalizePhrase(phrase)
	if n := len(strings.Fields(normalized)); n != PhraseWords {
		return fmt.Errorf("%w: recovery phrase must have %d words, got %d", interfaces.ErrInvalidInput, PhraseWords, n)
	}
	if !bip39.IsMnemonicValid(normalized) {
		return fmt.Errorf("%w: recovery phrase has an unknown word or a bad checksum", interfaces.ErrInvalidInput)
	}
	return nil
}

// PhraseToSeed validates phrase and stretches it into a 64-byte seed.
func PhraseToSeed(phrase string) (Seed, error) {
	if err := ValidatePhrase(phrase); err != nil {
		return Seed{}, err
	}
	raw, err := bip39.NewSeedWithErrorChecking(NormalizePhrase(phrase), "")
	if err != nil {
		return Seed{}, fmt.Errorf("%w: %v", interfaces.ErrInvalidInput, err)
	}
	return NewSeed(raw)
}

// FromPhrase derives the identity behind a recovery phrase.
func FromPhrase(phrase string) (*Identity, error) {
	seed, err := PhraseToSeed(phrase)
	if err != nil {
		return nil, err
	}
	return DeriveIdentity(seed)
}
