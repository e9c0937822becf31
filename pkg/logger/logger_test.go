package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/labinventario-api/pkg/logger"
)

func TestNew_JSONConComponente(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "debug", Out: &buf})

	log.Component("finalizer").Warn().Str("session_id", "s-1").Msg("ítem con fallo")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "warn", event["level"])
	assert.Equal(t, "finalizer", event["component"])
	assert.Equal(t, "s-1", event["session_id"])
	assert.Equal(t, "ítem con fallo", event["message"])
}

func TestNew_NivelFiltra(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "error", Out: &buf})

	log.Info().Msg("descartado")
	assert.Zero(t, buf.Len())

	log.Error().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNew_NivelInvalidoUsaInfo(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "verboso", Out: &buf})

	log.Debug().Msg("descartado")
	log.Info().Msg("visible")
	assert.NotContains(t, buf.String(), "descartado")
	assert.Contains(t, buf.String(), "visible")
}
