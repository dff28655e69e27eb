package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docmesh"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cli := &CLI{out: &buf}
	parser, err := kong.New(cli, kong.Name("docmesh"))
	require.NoError(t, err)

	args = append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...)
	kctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	err = kctx.Run(cli)
	return buf.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, docmesh.Version)
}

func TestAgents(t *testing.T) {
	t.Setenv("DOCMESH_MODEL_PROVIDER", "mock")
	out, err := run(t, "agents")
	require.NoError(t, err)
	assert.Contains(t, out, "research")
	assert.Contains(t, out, "prompt-optimization")
}

func TestGenerate(t *testing.T) {
	t.Setenv("DOCMESH_MODEL_PROVIDER", "mock")
	t.Setenv("DOCMESH_LOG_LEVEL", "error")
	out, err := run(t, "generate", "--topic", "Go modules")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Go modules", res["topic"])
	assert.Equal(t, true, res["evaluation"].(map[string]any)["success"])
}

func TestGenerate_Errors(t *testing.T) {
	_, err := run(t, "generate")
	assert.Error(t, err)

	_, err = run(t, "generate", "--topic", "x", "--mode", "random")
	assert.Error(t, err)

	t.Setenv("DOCMESH_MODEL_PROVIDER", "mock")
	_, err = run(t, "--log-level", "loud", "generate", "--topic", "x")
	assert.Error(t, err)
}
