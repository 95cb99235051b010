// Package partition owns the per-key output partitions: key routing, the
// sinks that read and append partition files, and the registry that hands
// sinks to workers.
package partition

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/arkilian/splitter/pkg/types"
)

// DefaultExtension is appended to the key character to form a file name.
const DefaultExtension = ".txt"

// RouterConfig configures key derivation and file naming.
type RouterConfig struct {
	// SentinelKey is used for records whose surname is empty
	SentinelKey types.Key

	// Extension is the partition file suffix, including the dot
	Extension string
}

// DefaultRouterConfig returns the routing used by the command line tool.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		SentinelKey: types.DefaultSentinelKey,
		Extension:   DefaultExtension,
	}
}

// Router determines the partition key for a record and the file that
// stores that partition.
type Router struct {
	config RouterConfig
}

// NewRouter creates a new router with the given configuration.
func NewRouter(config RouterConfig) (*Router, error) {
	if err := validateRouterConfig(config); err != nil {
		return nil, err
	}
	return &Router{config: config}, nil
}

// Route computes the partition key for a single record.
func (r *Router) Route(rec types.Record) types.Key {
	return types.DeriveKey(rec, r.config.SentinelKey)
}

// Task wraps a record with its computed key.
func (r *Router) Task(rec types.Record) types.Task {
	return types.Task{Key: r.Route(rec), Record: rec}
}

// FileName returns the partition file name for a key. Keys that cannot be
// used as a file name (path separators, NUL) are rejected.
func (r *Router) FileName(key types.Key) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return key.String() + r.config.Extension, nil
}

// Extension returns the configured partition file suffix.
func (r *Router) Extension() string {
	return r.config.Extension
}

func validateKey(key types.Key) error {
	switch {
	case key == 0:
		return fmt.Errorf("routing: NUL key")
	case key == '/' || key == '\\':
		return fmt.Errorf("routing: key %q is a path separator", key.String())
	case !utf8.ValidRune(rune(key)):
		return fmt.Errorf("routing: key %U is not a valid character", rune(key))
	}
	return nil
}

// validateRouterConfig checks that the routing configuration is valid.
func validateRouterConfig(config RouterConfig) error {
	if err := validateKey(config.SentinelKey); err != nil {
		return fmt.Errorf("routing: invalid sentinel key: %w", err)
	}
	if !strings.HasPrefix(config.Extension, ".") {
		return fmt.Errorf("routing: extension %q must start with a dot", config.Extension)
	}
	if strings.ContainsAny(config.Extension, "/\\\x00") {
		return fmt.Errorf("routing: extension %q contains a path separator", config.Extension)
	}
	return nil
}
