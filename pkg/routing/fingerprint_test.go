package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintNormalizesTask(t *testing.T) {
	a := Fingerprint("Plan a trip to   Japan", []string{"search"}, "r1", "v1")
	b := Fingerprint("  plan a trip to japan ", []string{"search"}, "r1", "v1")
	assert.Equal(t, a, b)
}

func TestFingerprintToolOrderInsensitivePair(t *testing.T) {
	a := Fingerprint("task", []string{"search", "calculator"}, "r1", "v1")
	b := Fingerprint("task", []string{"calculator", "search"}, "r1", "v1")
	assert.Equal(t, a, b)
}

func TestFingerprintVersionSensitivityAllFields(t *testing.T) {
	base := Fingerprint("task", []string{"search"}, "r1", "v1")

	assert.NotEqual(t, base, Fingerprint("other task", []string{"search"}, "r1", "v1"))
	assert.NotEqual(t, base, Fingerprint("task", []string{"search", "calculator"}, "r1", "v1"))
	assert.NotEqual(t, base, Fingerprint("task", []string{"search"}, "r2", "v1"))
	assert.NotEqual(t, base, Fingerprint("task", []string{"search"}, "r1", "v2"))
}

func TestFingerprintFieldBoundaries(t *testing.T) {
	// Tool list and version fields must not bleed into each other.
	a := Fingerprint("task", []string{"ab"}, "c", "v1")
	b := Fingerprint("task", []string{"a"}, "bc", "v1")
	assert.NotEqual(t, a, b)
}
