package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthscribe/synthscribe/internal/version"
)

func runVersionCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := runVersionCmd(t)
	require.NoError(t, err)
	assert.Contains(t, out, "SynthScribe ")
	assert.Contains(t, out, "commit: "+version.GitCommit)
	assert.Contains(t, out, "built:  "+version.BuildTime)
}

func TestVersionCmd_Check(t *testing.T) {
	_, err := runVersionCmd(t, "--check", "0.0.0-dev")
	assert.NoError(t, err)

	_, err = runVersionCmd(t, "--check", "99.0.0")
	assert.ErrorContains(t, err, "older than required")
}
