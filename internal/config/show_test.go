package config

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEffective_Defaults(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, RenderEffective(DefaultConfig(), "1.2.3", &buf))

	out := buf.String()
	assert.Contains(t, out, `client_id     = "2fINEZ0uC_0jAg"`)
	assert.Contains(t, out, `scopes        = ["identity", "history", "save", "read"]`)
	assert.Contains(t, out, `save_file     = "saved_posts.json"`)
	assert.Contains(t, out, `user_agent          = "cli:saved-transfer:1.2.3"`)
	assert.Contains(t, out, `log_level = "info"`)
	assert.Contains(t, out, `trace     = false`)
	assert.NotContains(t, out, "listen_addr")
}

func TestRenderEffective_ListenAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:5000"

	var buf bytes.Buffer

	require.NoError(t, RenderEffective(cfg, "dev", &buf))
	assert.Contains(t, buf.String(), `listen_addr   = "127.0.0.1:5000"`)
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestRenderEffective_WriteError(t *testing.T) {
	err := RenderEffective(DefaultConfig(), "dev", failWriter{})
	assert.EqualError(t, err, "broken pipe")
}
