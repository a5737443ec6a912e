// Package fetch implements the cache-aware fetcher: it resolves a URL onto the
// local cache layout, probes the remote with HEAD, decides freshness by size or
// Last-Modified token, and downloads only when the cached copy is stale. Probe
// failures never fail a call; only a failed transfer is returned to the caller,
// and the ".meta" token is written strictly after a successful transfer.
package fetch
