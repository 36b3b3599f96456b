// Package naming maps arbitrary byte sequences to fixed-length, lowercase hex
// names that are valid on every filesystem, and splits them for directory
// fan-out.
//
// Names are deterministic: processes that never talk to each other agree on
// the name of the same bytes, which is what lets content addressing collapse
// duplicate saves into one file.
//
//	prefix, rest := naming.Shard(key)   // "3f", "a1...": root/3f/a1.../
//	file := naming.NameFor(value)       // 64 hex chars
package naming
