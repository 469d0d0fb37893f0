package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/tokens-api-suite/pkg/gateway"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"chains=1", "chains=137", "chainTypes=EVM", "empty="})
	require.NoError(t, err)
	assert.Equal(t, gateway.Params{"chains": "1,137", "chainTypes": "EVM", "empty": ""}, params)

	_, err = parseParams([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseParams([]string{"=x"})
	assert.Error(t, err)
}

func TestParseHeaders(t *testing.T) {
	hdrs, err := parseHeaders([]string{"Origin: https://example.com", "X-Empty:"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Origin": "https://example.com", "X-Empty": ""}, hdrs)

	_, err = parseHeaders([]string{"no-colon"})
	assert.Error(t, err)

	hdrs, err = parseHeaders(nil)
	assert.NoError(t, err)
	assert.Nil(t, hdrs)
}

func TestListCommandHonorsSelection(t *testing.T) {
	t.Setenv("SUITE_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"list", "--category", "security", "--only", "28,31"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "TC_LIFI-API_028")
	assert.Contains(t, lines[2], "TC_LIFI-API_031")
}
