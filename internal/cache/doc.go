// Package cache defines the disk-backed store that keeps downloaded files under
// <CacheRoot>/[subfolder]/<file name>. The resolver maps a remote URL onto that
// layout, and the store exposes write primitives with safe semantics (temp file
// + rename), live size lookups and the ".meta" sidecar that holds a verbatim
// Last-Modified token. Fetchers depend on this package to decide freshness and
// persist downloads without duplicating filesystem logic.
package cache
