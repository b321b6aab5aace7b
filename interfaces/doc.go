// Package interfaces defines the shared types, sentinel errors and storage
// contracts used across the board client, the membership prover and the
// gatekeeper service.
//
// # Wire types
//
//   - WrappedKey: a board key sealed to one member's X25519 public key
//   - MembershipProof: an anonymous proof of group membership bound to a scope
//   - BoardRecord: the encrypted, persisted form of a board document
//
// # Storage Interfaces
//
//   - RecordStore: keyed storage for board and identity records (file, redis, mongodb, vault)
//   - StorageBackend: content-addressed storage for encrypted blobs (file, s3, ipfs)
//   - StorageBackendFactory: creates either kind of backend from a location URI
package interfaces
