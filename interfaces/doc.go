// Package interfaces defines the contracts shared by every exampledb component,
// separating interface definitions from implementations.
//
// # Storage Interfaces
//
// ExampleDatabase: a key to multi-value store of serialized test examples, with
// Save, Fetch, Delete and Move. Implementations live in the storage package
// (directory, memory, LevelDB, S3, IPFS, Vault, GitHub) and in api/clients (remote
// server).
//
// StorageBackendFactory: builds backends from location URIs and aggregates several
// of them into one.
//
// # Types
//
//   - Key: opaque identifier of a group of examples
//   - Value: opaque serialized example
//   - StorageBackendLocation: parsed backend URI
//   - StoreError: failed store operation, always matching ErrIO
package interfaces
