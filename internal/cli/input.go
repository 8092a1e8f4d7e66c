package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// stdinIsTerminal reports whether stdin is an interactive terminal
func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// inputReader returns the buffered reader shared by all prompts of one invocation
func (a *app) inputReader() *bufio.Reader {
	if r, ok := a.in.(*bufio.Reader); ok {
		return r
	}
	r := bufio.NewReader(a.in)
	a.in = r
	return r
}

// promptPassword prompts for a password without echo on a terminal, or reads
// one line from piped input
func (a *app) promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	if a.stdinTTY() {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(password), nil
	}

	line, err := a.readLine()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return line, nil
}

// promptPasswordConfirm prompts for a password and confirmation
func (a *app) promptPasswordConfirm(prompt string) (string, error) {
	password, err := a.promptPassword(prompt)
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", errors.New("passphrase cannot be empty")
	}

	confirm, err := a.promptPassword("Confirm passphrase: ")
	if err != nil {
		return "", err
	}

	if password != confirm {
		return "", errors.New("passphrases do not match")
	}
	return password, nil
}

// promptInput prompts for regular input
func (a *app) promptInput(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	line, err := a.readLine()
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptConfirm prompts for yes/no confirmation
func (a *app) promptConfirm(prompt string, defaultYes bool) (bool, error) {
	suffix := " [y/N]: "
	if defaultYes {
		suffix = " [Y/n]: "
	}

	input, err := a.promptInput(prompt + suffix)
	if err != nil {
		return false, err
	}

	input = strings.ToLower(input)
	if input == "" {
		return defaultYes, nil
	}
	return input == "y" || input == "yes", nil
}

// readSecretValue reads a value from a file, stdin ("-") or a hidden prompt
func (a *app) readSecretValue(file, prompt string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch file {
	case "":
		return a.promptPassword(prompt)
	case "-":
		data, err = io.ReadAll(a.inputReader())
	default:
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (a *app) readLine() (string, error) {
	line, err := a.inputReader().ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
