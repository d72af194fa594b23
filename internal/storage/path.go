// Package storage stores product images in S3-compatible object storage.
// Images are content-addressed: the object key is derived from the SHA-256 of the bytes.
package storage

import (
	"path"
)

// KeyConfig holds configuration for object key generation.
type KeyConfig struct {
	// Prefix is the key prefix for all images (e.g., "products").
	Prefix string

	// ShardLevels is the number of key segments used for sharding.
	// Default: 2 (e.g., products/ab/cd/abcdef....png)
	ShardLevels int

	// ShardWidth is the number of characters per shard segment.
	// Default: 2 (e.g., ab, cd)
	ShardWidth int
}

// DefaultKeyConfig returns the default key configuration.
func DefaultKeyConfig() KeyConfig {
	return KeyConfig{
		Prefix:      "products",
		ShardLevels: 2,
		ShardWidth:  2,
	}
}

// ComputeKey generates the object key for a content hash and file extension.
//
// Example with default config (2 levels, 2 chars each):
//
//	hash: "abcdef1234567890..."
//	ext:  "png"
//	result: "products/ab/cd/abcdef1234567890....png"
func ComputeKey(config KeyConfig, contentHash, ext string) string {
	name := contentHash
	if ext != "" {
		name += "." + ext
	}

	// Validate hash length
	minLength := config.ShardLevels * config.ShardWidth
	if len(contentHash) < minLength {
		return path.Join(config.Prefix, name)
	}

	// Build key components
	components := make([]string, 0, config.ShardLevels+2)
	components = append(components, config.Prefix)

	// Add shard segments
	offset := 0
	for i := 0; i < config.ShardLevels; i++ {
		components = append(components, contentHash[offset:offset+config.ShardWidth])
		offset += config.ShardWidth
	}

	// Add full hash as object name
	components = append(components, name)

	return path.Join(components...)
}
