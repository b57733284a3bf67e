package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srtux/sre-agent-sub000/internal/agent/tools"
)

func TestNewMCPServer(t *testing.T) {
	registry := tools.NewRegistry(tools.Dependencies{ProjectID: "proj-1"})

	srv, err := NewMCPServer(registry, "1.0.0")
	require.NoError(t, err)
	assert.NotNil(t, srv)
}
