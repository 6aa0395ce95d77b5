package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New("debug", "json", &buf)
	l.Info().Str("operation", "merge").Int("files", 2).Msg("stage complete")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "pdfgateway", line["service"])
	assert.Equal(t, "merge", line["operation"])
	assert.Equal(t, float64(2), line["files"])
	assert.Equal(t, "stage complete", line["message"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New("warn", "json", &buf)
	l.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestSetupReplacesDefault(t *testing.T) {
	var buf bytes.Buffer
	Setup("info", "json", &buf)
	defer Setup("info", "json", os.Stdout)

	Logf("staged %d files", 3)
	assert.Contains(t, buf.String(), "staged 3 files")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"":        "info",
		"DEBUG":   "debug",
		"warning": "warn",
		"bogus":   "info",
		"off":     "disabled",
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in).String(), "parseLevel(%q)", in)
	}
}
