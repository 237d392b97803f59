package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestComposeCommand(t *testing.T) {
	out, err := execute(t, "compose", "Fresh lawns", "#Nairobi", "Kenya", "--max", "40")
	require.NoError(t, err)
	assert.Equal(t, "Fresh lawns #Nairobi #Kenya\n", out)
}

func TestComposeCommandJSON(t *testing.T) {
	out, err := execute(t, "compose", "Hello", "--max", "3", "-o", "json")
	require.NoError(t, err)

	var got struct {
		Message string `json:"message"`
		Length  int    `json:"length"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.LessOrEqual(t, got.Length, 3)
}

func TestComposeRequiresBase(t *testing.T) {
	_, err := execute(t, "compose")
	assert.Error(t, err)
}

func TestInitConfigRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	out, err := execute(t, "init-config", "--config", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Wrote default config"))

	_, err = execute(t, "init-config", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "init-config", "--config", path, "--force")
	assert.NoError(t, err)
}

func TestPlanCommand(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")

	out, err := execute(t, "plan", "--config", path, "--seed", "3", "-o", "json")
	require.NoError(t, err)

	var plan struct {
		TopicsByChannel map[string]string `json:"topics_by_channel"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Len(t, plan.TopicsByChannel, 2)
}

func TestOpenRejectsUnknownTarget(t *testing.T) {
	_, err := execute(t, "open", "desktop")
	assert.Error(t, err)
}
