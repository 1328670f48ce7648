package qcgc

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv(envMajorCollection, "12345")
	t.Setenv(envIncMark, "999")

	cfg := LoadConfig()
	assert.Equal(t, cfg.MajorThreshold, uintptr(12345))
	assert.Equal(t, cfg.IncMarkThreshold, uintptr(999))
}

func TestLoadConfigMalformedFallsBackToDefault(t *testing.T) {
	t.Setenv(envMajorCollection, "not-a-number")

	cfg := LoadConfig()
	assert.Equal(t, cfg.MajorThreshold, defaultMajorThreshold)
}

func TestLoadConfigUnsetKeepsDefault(t *testing.T) {
	cfg := LoadConfig()
	assert.Equal(t, cfg.IncMarkThreshold, defaultIncMarkThreshold)
}
