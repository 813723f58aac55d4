package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEarlyLog(t *testing.T) {
	var buf bytes.Buffer
	l := &EarlyLog{out: &buf}

	l.Error("failed to load config: %v", "missing")
	l.Warn("using defaults")
	l.Info("100%% plain")

	assert.Equal(t, "ERROR: failed to load config: missing\nWARN: using defaults\nINFO: 100% plain\n", buf.String())
}
