// Package routing caches routing decisions keyed by a content-addressed
// fingerprint of the task, the tool universe, and version identifiers.
package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes (normalized task, sorted tool universe, reasoner
// version, routing-config version) into a stable cache key. Normalization
// makes the key insensitive to whitespace and case changes in the task;
// version ids make any reasoner or config upgrade an implicit bulk
// invalidation.
func Fingerprint(task string, toolUniverse []string, reasonerVersion, configVersion string) string {
	tools := make([]string, len(toolUniverse))
	copy(tools, toolUniverse)
	sort.Strings(tools)

	h := xxhash.New()
	_, _ = h.WriteString(normalizeTask(task))
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(strings.Join(tools, ","))
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(reasonerVersion)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(configVersion)
	return fmt.Sprintf("%016x", h.Sum64())
}

// normalizeTask trims, collapses internal whitespace runs to single spaces,
// and casefolds.
func normalizeTask(task string) string {
	return strings.ToLower(strings.Join(strings.Fields(task), " "))
}
