package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetup_JSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	Setup("warn", FormatJSON, &buf)

	log.Info().Msg("hidden")
	log.Warn().Str("scope", "global").Msg("shown")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "shown" || line["scope"] != "global" {
		t.Errorf("unexpected log line: %v", line)
	}
}

func TestSetup_UnknownLevelIsInfo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	Setup("chatty", FormatConsole, &bytes.Buffer{})
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v, want info", zerolog.GlobalLevel())
	}
}
