// Package storage holds the persistence layer for boards and attachments.
//
// Two kinds of stores are provided:
//
//   - Blob backends (interfaces.StorageBackend) keep encrypted attachments and
//     published board snapshots, addressed by the SHA-256 of their ciphertext.
//     Implementations: local files, S3-compatible object storage and the IPFS
//     mutable file system. MultiStorageBackend replicates across several of them.
//   - Record stores (interfaces.RecordStore) keep mutable records such as the
//     encrypted board records and sealed identities, keyed by namespace and key.
//     Implementations: local files, Redis, MongoDB, HashiCorp Vault KV v2 and memory.
//
// Locations are URIs of the form
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// for example:
//
//	file:///var/lib/zkkb
//	s3://bucket/prefix?region=eu-west-1
//	ipfs://127.0.0.1:5001/zkkb?timeout=10s
//	redis://:password@127.0.0.1:6379/0
//	mongodb://127.0.0.1:27017/?database=zkkb
//	vault://127.0.0.1:8200/secret/zkkb?token=...
//
// Nothing in this package sees plaintext: callers encrypt before storing.
package storage
