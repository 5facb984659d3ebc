// Package cache provides a small generic LRU cache.
//
//	c := cache.New[string, *shader.Blob](64)
//	c.Set(key, blob)
//	blob, ok := c.Get(key)
//
// The limit is soft: once it is exceeded the least recently used quarter of
// the entries is evicted in one pass. Cache is safe for concurrent use and
// must not be copied after creation.
package cache
