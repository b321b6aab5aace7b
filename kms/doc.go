// Package kms manages board keys and identity seed backups.
//
// # Board keys
//
// Every board is encrypted under one random AES-256 board key. The key is
// never stored in the clear: each member record carries a copy wrapped to
// that member's X25519 public key.
//
//   - NewBoardKey: generate a board key
//   - GrantAccess: wrap the board key to a new member and add them
//   - OpenBoardKey / UnwrapBoardKey: recover the board key as a member
//   - RotateBoardKey: generate a new key and re-wrap it to every live member
//   - RevokeMember: remove a member, then rotate
//
// A removed member keeps whatever they already decrypted but cannot read
// anything encrypted after the rotation.
//
// # Seed backup
//
// SplitSeed splits an identity seed with Shamir's Secret Sharing into one
// share per guardian and seals each share to that guardian's public key. Any
// threshold of guardians can hand their opened shares to a SeedRecovery,
// which reconstructs the seed in memory and derives the identity from it:
//
//	shares, err := kms.SplitSeed(id.Seed(), 2, map[string][]byte{
//	    "alice": alicePub,
//	    "bob":   bobPub,
//	    "carol": carolPub,
//	})
//
//	recovery := kms.NewSeedRecovery(2, id.Commitment)
//	plain, _ := kms.OpenShare(shares[0], alicePriv)
//	_ = recovery.SubmitShare(plain)
//	// ...
//	recovered, ok := recovery.Recovered()
package kms
