package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnvSubstitutesVariables(t *testing.T) {
	t.Setenv("EXPAND_TEST_KEY", "sk-value")
	out := ExpandEnv([]byte("key: {{.EXPAND_TEST_KEY}}"))
	assert.Equal(t, "key: sk-value", string(out))
}

func TestExpandEnvMissingVariableIsEmpty(t *testing.T) {
	out := ExpandEnv([]byte("key: '{{.DEFINITELY_NOT_SET_ANYWHERE}}'"))
	assert.Equal(t, "key: ''", string(out))
}

func TestExpandEnvLeavesDollarSignsAlone(t *testing.T) {
	in := []byte(`pattern: "^\\$[0-9]+$"`)
	assert.Equal(t, in, ExpandEnv(in))
}

func TestExpandEnvBadTemplateReturnsOriginal(t *testing.T) {
	in := []byte("key: {{.unclosed")
	assert.Equal(t, in, ExpandEnv(in))
}
