// Package assets implements the per-resolution download cache.
//
// A Cache owns one directory. Remote assets requested by page code through
// the content server's proxy route are downloaded once, stored under a hashed
// file name and served from disk afterwards. Concurrent requests for the same
// source share a single download.
//
// Example Usage:
//
//	cache, err := assets.New(assets.Options{Client: client})
//	if err != nil {
//		return err
//	}
//	defer cache.Destroy()
//
//	entry, err := cache.Download(ctx, "https://example.com/font.woff2")
//	// entry.Path is a local file, entry.ContentType its detected type
package assets
