// Package main (cmd/httpserver) serves an example store over HTTP.
//
// The store is built from one or more --db location URIs. Several locations
// are replicated: writes go to every reachable backend and reads merge them.
// The server exposes the store API, health and drain endpoints, and Prometheus
// metrics on a separate address, and shuts down gracefully on SIGINT/SIGTERM.
//
// Example usage:
//
//	httpserver --listen-addr=0.0.0.0:8080 \
//	    --db=file:///var/lib/exampledb \
//	    --db='s3://AK:SK@ci-examples/exampledb?region=eu-west-1'
package main
