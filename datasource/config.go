package datasource

import "time"

// Defaults mirror DynamicListConfiguration in
// original_source/aplcore/src/datasource/dynamiclistdatasourceprovider.cpp
// and spec.md §4.1 exactly.
const (
	DefaultCacheChunkSize = 10
	DefaultFetchRetries   = 2
	DefaultFetchTimeout   = 5000 * time.Millisecond

	// StartingCorrelationToken matches the original implementation's
	// STARTING_REQUEST_TOKEN so a reader familiar with the original wire
	// traces (e.g. spec.md §8's "correlations 101/102") sees the same
	// numbers here.
	StartingCorrelationToken int64 = 101
)

// Configuration is the effective, fully-defaulted configuration for one
// registered source type tag. spec.md §4.1: "configure(cfg) where cfg
// enumerates: { type, cacheChunkSize, fetchRetries, fetchTimeout }".
type Configuration struct {
	// Type is the source type tag this configuration applies to; a
	// createList seed must carry a matching "type" field.
	Type string

	// CacheChunkSize is the distance (in absolute index units) from an
	// open frontier at which the scheduler extends it. Must be > 0.
	CacheChunkSize int

	// FetchRetries is the number of retries permitted after the first
	// attempt before a frontier is abandoned. Must be >= 0.
	FetchRetries int

	// FetchTimeout is how long a PendingRequest waits for a matching
	// response before the retry/timeout state machine advances.
	FetchTimeout time.Duration
}

// WithDefaults returns a copy of cfg with a non-positive CacheChunkSize or
// FetchTimeout, or a negative FetchRetries, replaced by the package
// defaults. A FetchRetries of 0 is kept and means no retries. This matches
// the original's constructor behavior
// (DynamicListConfiguration(type) leaves cacheChunkSize/fetchRetries/
// fetchTimeout at their defaults until explicitly set).
func (cfg Configuration) WithDefaults() Configuration {
	out := cfg
	if out.CacheChunkSize <= 0 {
		out.CacheChunkSize = DefaultCacheChunkSize
	}
	if out.FetchRetries < 0 {
		out.FetchRetries = DefaultFetchRetries
	}
	if out.FetchTimeout <= 0 {
		out.FetchTimeout = DefaultFetchTimeout
	}
	return out
}
