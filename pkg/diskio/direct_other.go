//go:build !linux

package diskio

// No portable direct-I/O flag outside Linux; matches the spec's explicit
// cache-hint fallback (original_source's __APPLE__ branch uses F_NOCACHE
// via fcntl instead, which the os package does not expose).
const directIOFlag = 0
