/*
Package api holds what the exampledb HTTP server and its clients share: route
patterns, request and response bodies, and the server configuration.

# Routes

  - PUT    /api/v1/keys/{key}               save the request body under key
  - GET    /api/v1/keys/{key}               fetch all values of key
  - DELETE /api/v1/keys/{key}               delete the request body from key
  - POST   /api/v1/keys/{key}/move/{dest}   move the request body from key to dest

Keys are hex encoded in the path. Save, delete and move answer 204 No Content;
fetch answers a FetchResponse. Failed requests carry an ErrorResponse.

The clients subpackage implements interfaces.ExampleDatabase on top of these
routes, so a remote server can be used wherever a local backend is expected.
*/
package api
