// Package storage implements example databases: stores mapping an opaque key
// to a set of opaque values, used by property-based test engines to replay
// failing and interesting examples across runs.
//
// Every backend implements interfaces.ExampleDatabase:
//
//   - FileBackend keeps a directory tree and is safe to share between processes
//   - MemoryBackend keeps a map, for tests and throwaway runs
//   - LevelDBBackend keeps a single-process LevelDB database
//   - S3Backend, IPFSBackend and VaultBackend keep the directory layout in
//     remote object stores
//   - GitHubBackend reads a directory tree committed to a repository
//   - ReadOnlyBackend and MultiStorageBackend wrap and combine other backends
//
// # Layout
//
// Keys and values are named by the hex digest of their bytes (see package
// naming). The directory-shaped backends store a value at
//
//	<root>/<first 2 chars of key name>/<rest of key name>/<value name>
//
// so saving identical bytes twice lands on the same path, and a file whose
// content no longer hashes to its name is detected and skipped on fetch.
//
// # Storage URI Format
//
// StorageBackendFactory builds backends from location URIs:
//
//   - file:///var/lib/exampledb?fsync=false&hash=blake2b
//   - memory://
//   - leveldb:///var/lib/exampledb.ldb
//   - s3://AK:SK@bucket-name/prefix?region=us-west-2&endpoint=http://minio:9000&path_style=true
//   - ipfs://127.0.0.1:5001/exampledb
//   - vault://vault.example.com:8200/secret/exampledb
//   - github://owner/repo/.exampledb?ref=main
//   - http://127.0.0.1:8080
//   - srv://_exampledb._tcp.ci.internal?resolver=10.0.0.2:53
//
// Any location accepts readonly=true.
//
// # Failure Model
//
// Fetch never fails: unreadable entries are skipped. Save and Move return
// errors matching interfaces.ErrIO. Delete of an absent value succeeds.
//
// FileBackend takes no locks. Processes sharing a root rely on rename being
// atomic within a directory, which some network filesystems do not provide;
// such roots are unsupported.
package storage
