// Package clients provides HTTP clients for the exampledb server.
//
// StoreClient implements interfaces.ExampleDatabase against a remote server,
// keeping the same idempotence and error semantics as the local backends:
// saving a present value or deleting an absent one succeeds, and transport or
// server failures surface as errors matching interfaces.ErrIO.
package clients
