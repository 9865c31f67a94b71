// Package config implements configuration management for the fetch
// pipeline, as described in section 6 of the design. It handles parsing
// and validation of every knob the orchestrator and its collaborators
// need: the world's rank/size, the sliding window width, buffer sizing,
// CRC verification, logging, and the prefix/map_file storage locations.
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Config holds every configuration value the fetch pipeline needs for
// one rank's participation in a FetchSync call.
type Config struct {
	Rank      int    // this process's rank within the world
	WorldSize int    // total number of ranks participating
	Prefix    string // root of the shared prefix directory: local path or s3://bucket/prefix
	MapFile   string // this rank's filemap path, relative to its cache directory
	CacheDir  string // local directory this rank stages fetched files into

	FetchWidth  int  // W: maximum ranks fetching concurrently (0 = WorldSize-1)
	FileBufSize int  // bytes per copy/reconstruct buffer (0 = 1MiB default)
	CRCOnFlush  bool // verify CRC32 on every fetched file
	LogEnable   bool // emit Log events/transfers to stdout

	// Region is the AWS region to use when Prefix or CacheDir resolve to
	// an s3:// URI. Empty defers to the SDK's default credential/region
	// chain, matching gurre-ddb-pitr's Region handling.
	Region string
}

// Validate ensures every required field is present and internally
// consistent, per section 6.
func (c *Config) Validate() error {
	if c.WorldSize < 1 {
		return fmt.Errorf("world size must be at least 1")
	}
	if c.Rank < 0 || c.Rank >= c.WorldSize {
		return fmt.Errorf("rank %d out of range [0,%d)", c.Rank, c.WorldSize)
	}
	if c.Prefix == "" {
		return fmt.Errorf("prefix is required")
	}
	if c.MapFile == "" {
		return fmt.Errorf("map file is required")
	}
	if c.CacheDir == "" {
		return fmt.Errorf("cache dir is required")
	}
	if c.FetchWidth < 0 {
		return fmt.Errorf("fetch width must be >= 0 (0 means unbounded)")
	}
	if c.FileBufSize < 0 {
		return fmt.Errorf("file buf size must be >= 0 (0 means default)")
	}

	if IsS3URI(c.Prefix) {
		if _, err := ParseS3URI(c.Prefix); err != nil {
			return fmt.Errorf("invalid prefix: %w", err)
		}
	}
	if IsS3URI(c.CacheDir) {
		if _, err := ParseS3URI(c.CacheDir); err != nil {
			return fmt.Errorf("invalid cache dir: %w", err)
		}
	}
	return nil
}

// IsS3URI reports whether uri names an S3 location rather than a local
// path.
func IsS3URI(uri string) bool {
	return strings.HasPrefix(uri, "s3://")
}

// ParseS3URI validates uri as an "s3://bucket/prefix" location.
func ParseS3URI(uri string) (*url.URL, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid s3 uri: %w", err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return nil, fmt.Errorf("s3 uri must be of the form s3://bucket/prefix")
	}
	return u, nil
}
