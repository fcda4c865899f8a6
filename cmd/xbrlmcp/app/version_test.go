package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/versions"
)

func TestVersionCmdText(t *testing.T) {
	t.Parallel()

	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	info := versions.GetVersionInfo()
	assert.Contains(t, out.String(), "xbrlmcp "+info.Version)
	assert.Contains(t, out.String(), "Go version: "+info.GoVersion)
	assert.Contains(t, out.String(), "Platform: "+info.Platform)
}

func TestVersionCmdJSON(t *testing.T) {
	t.Parallel()

	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json"})
	require.NoError(t, cmd.Execute())

	var decoded versions.VersionInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, versions.GetVersionInfo(), decoded)
}
