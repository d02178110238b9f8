//go:build !armcache_debug

package armcache

const debug = false
