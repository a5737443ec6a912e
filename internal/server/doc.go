// Package server hosts the Fiber HTTP service: request-ID and recover
// middleware, the SourceRegistry built from [[Source]] config, and the
// /sources handlers that run a conditional fetch before streaming the
// cached file. Diagnostics routes live in the routes subpackage so they
// can depend on optional clients without widening this package's API.
package server
