package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jmcleod/inkseal/internal/config"
)

// passwordEnv is read when --password-file is not given.
const passwordEnv = config.EnvPrefix + "PASSWORD"

var errNoPassword = errors.New("no password: use --password-file, " + passwordEnv + " or an interactive terminal")

// promptFunc asks for a password without echo.
type promptFunc func(prompt string) (string, error)

// resolvePassword returns the password from passwordFile, then the
// environment, then an interactive prompt. When confirm is set the prompt
// asks twice.
func resolvePassword(passwordFile string, getenv func(string) string, prompt promptFunc, confirm bool) (string, error) {
	if passwordFile != "" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("reading password file: %w", err)
		}
		pw := strings.TrimRight(string(data), "\r\n")
		if pw == "" {
			return "", fmt.Errorf("password file %s is empty", passwordFile)
		}
		return pw, nil
	}
	if pw := getenv(passwordEnv); pw != "" {
		return pw, nil
	}
	if prompt == nil {
		return "", errNoPassword
	}

	pw, err := prompt("Password: ")
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", errors.New("password must not be empty")
	}
	if confirm {
		again, err := prompt("Confirm password: ")
		if err != nil {
			return "", err
		}
		if again != pw {
			return "", errors.New("passwords do not match")
		}
	}
	return pw, nil
}

// terminalPrompt reads a password from the controlling terminal, writing the
// prompt to stderr so stdout stays clean for piped output. It returns nil
// when stdin is not a terminal.
func terminalPrompt() promptFunc {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return func(prompt string) (string, error) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
}

// readPassword resolves the password for a command from the process
// environment and terminal.
func readPassword(passwordFile string, confirm bool) (string, error) {
	return resolvePassword(passwordFile, os.Getenv, terminalPrompt(), confirm)
}
