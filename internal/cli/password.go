package cli

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/term"
)

var (
	ErrPasswordMismatch = errors.New("passphrases do not match")
	ErrPasswordEmpty    = errors.New("passphrase cannot be empty")
)

// stdin is replaced in tests.
var stdin io.Reader = os.Stdin

// stdinReader is shared so that a passphrase line and later reads from the
// same pipe do not lose buffered bytes.
var stdinReader *bufio.Reader

func bufferedStdin() *bufio.Reader {
	if stdinReader == nil {
		stdinReader = bufio.NewReader(stdin)
	}
	return stdinReader
}

// isTerminal returns true if stdin is a terminal (not piped/redirected).
func isTerminal() bool {
	if stdin != os.Stdin {
		return false
	}
	return term.IsTerminal(int(syscall.Stdin))
}

// readLine reads one line from stdin without its line terminator.
func readLine() ([]byte, error) {
	line, err := bufferedStdin().ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return nil, err
	}
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return line, nil
}

// readPasswordSecure reads a passphrase from stdin without echo.
// Falls back to a line read if stdin is not a terminal.
func readPasswordSecure(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	if !isTerminal() {
		pw, err := readLine()
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		return pw, nil
	}

	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	return pw, nil
}

// ReadPasswordInteractive prompts for a passphrase.
// If confirm is true, asks for it twice.
func ReadPasswordInteractive(prompt string, confirm bool) ([]byte, error) {
	password, err := readPasswordSecure(prompt)
	if err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, ErrPasswordEmpty
	}

	if confirm {
		again, err := readPasswordSecure("Confirm passphrase: ")
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(password, again) {
			return nil, ErrPasswordMismatch
		}
	}
	return password, nil
}

// ReadPasswordFromStdin reads a passphrase line from stdin (-P).
func ReadPasswordFromStdin() ([]byte, error) {
	pw, err := readLine()
	if err != nil {
		return nil, fmt.Errorf("reading passphrase from stdin: %w", err)
	}
	return pw, nil
}

// resolvePassword picks the passphrase from a flag value, stdin, or an
// interactive prompt, in that order of preference.
func resolvePassword(flagValue string, fromStdin bool, prompt string, confirm bool) ([]byte, error) {
	switch {
	case fromStdin:
		return ReadPasswordFromStdin()
	case flagValue != "":
		return []byte(flagValue), nil
	default:
		return ReadPasswordInteractive(prompt, confirm)
	}
}
