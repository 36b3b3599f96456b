// Package discovery resolves exampledb servers announced through DNS SRV
// records.
//
// A CI fleet can publish its shared example stores as
//
//	_exampledb._tcp.ci.internal. SRV 0 0 8080 store-1.ci.internal.
//
// and point test runs at srv://_exampledb._tcp.ci.internal. The storage
// factory turns every resolved target into an HTTP client and combines them
// into one multi-storage backend.
package discovery
