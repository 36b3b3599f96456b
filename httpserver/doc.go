/*
Package httpserver serves an example store over HTTP so that test runs on many
machines can share one corpus of saved examples.

The server wraps a single interfaces.ExampleDatabase, usually the multi-storage
backend built from the --db locations, and exposes the routes listed in package
api. Every call to the store is instrumented with Prometheus metrics served on a
separate address.

# Health Endpoints

  - /livez always answers 200 while the process runs
  - /readyz answers 200 unless the server is draining
  - /drain and /undrain toggle readiness for load balancer rotation

# Usage Example

	cfg := &api.HTTPServerConfig{ListenAddr: "127.0.0.1:8080", Log: logger}
	srv, err := httpserver.New(cfg, db)
	if err != nil {
		return err
	}
	srv.RunInBackground()
	defer srv.Shutdown()
*/
package httpserver
