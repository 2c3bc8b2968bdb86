package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

// scriptedPrompt answers prompts in order.
func scriptedPrompt(answers ...string) promptFunc {
	return func(string) (string, error) {
		if len(answers) == 0 {
			return "", errors.New("unexpected prompt")
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
}

func TestResolvePassword_FileWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pw")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

	env := func(string) string { return "from-env" }
	pw, err := resolvePassword(path, env, scriptedPrompt(), false)
	require.NoError(t, err)
	assert.Equal(t, "from-file", pw)
}

func TestResolvePassword_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pw")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

	_, err := resolvePassword(path, noEnv, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestResolvePassword_MissingFile(t *testing.T) {
	_, err := resolvePassword(filepath.Join(t.TempDir(), "missing"), noEnv, nil, false)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolvePassword_Environment(t *testing.T) {
	env := func(k string) string {
		if k == passwordEnv {
			return "from-env"
		}
		return ""
	}
	pw, err := resolvePassword("", env, scriptedPrompt(), true)
	require.NoError(t, err)
	assert.Equal(t, "from-env", pw)
}

func TestResolvePassword_Prompt(t *testing.T) {
	pw, err := resolvePassword("", noEnv, scriptedPrompt("secret"), false)
	require.NoError(t, err)
	assert.Equal(t, "secret", pw)
}

func TestResolvePassword_PromptConfirm(t *testing.T) {
	pw, err := resolvePassword("", noEnv, scriptedPrompt("secret", "secret"), true)
	require.NoError(t, err)
	assert.Equal(t, "secret", pw)

	_, err = resolvePassword("", noEnv, scriptedPrompt("secret", "other"), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "do not match")
}

func TestResolvePassword_PromptEmpty(t *testing.T) {
	_, err := resolvePassword("", noEnv, scriptedPrompt(""), false)
	require.Error(t, err)
}

func TestResolvePassword_NoSource(t *testing.T) {
	_, err := resolvePassword("", noEnv, nil, false)
	assert.ErrorIs(t, err, errNoPassword)
}
