// Package console implements operator interaction on the controlling terminal:
// the submit confirmation and the login prompt.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	port "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/port"
	"github.com/ulelab/flowAPIscripts/pkg/batch/infrastructure/remote"
)

// Terminal reads answers from in and writes prompts to out. When in is a
// terminal, passwords are read without echo.
type Terminal struct {
	in     *bufio.Reader
	out    io.Writer
	fd     int
	hasTTY bool
}

// NewTerminal creates a Terminal on the process's stdin and stderr.
func NewTerminal() *Terminal {
	fd := int(os.Stdin.Fd())
	return &Terminal{
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stderr,
		fd:     fd,
		hasTTY: term.IsTerminal(fd),
	}
}

// NewScriptedTerminal creates a Terminal that reads answers from in. Passwords
// are read as plain lines.
func NewScriptedTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out, fd: -1}
}

// Confirm prints prompt followed by "(y/n): " and accepts only "y" (case-insensitive).
// End of input counts as a refusal.
func (t *Terminal) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(t.out, "%s (y/n): ", prompt)
	answer, err := t.readLine()
	if err != nil && err != io.EOF {
		return false, err
	}
	return strings.ToLower(strings.TrimSpace(answer)) == "y", nil
}

// PromptCredentials asks for a username (unless defaultUsername is set) and a password.
func (t *Terminal) PromptCredentials(defaultUsername string) (string, string, error) {
	username := defaultUsername
	if username == "" {
		fmt.Fprint(t.out, "Enter your username: ")
		line, err := t.readLine()
		if err != nil && err != io.EOF {
			return "", "", err
		}
		username = strings.TrimSpace(line)
	}
	if username == "" {
		return "", "", fmt.Errorf("username must not be empty")
	}

	fmt.Fprint(t.out, "Enter your password: ")
	if t.hasTTY {
		secret, err := term.ReadPassword(t.fd)
		fmt.Fprintln(t.out)
		if err != nil {
			return "", "", err
		}
		return username, string(secret), nil
	}
	line, err := t.readLine()
	if err != nil && err != io.EOF {
		return "", "", err
	}
	return username, strings.TrimRight(line, "\r\n"), nil
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}

var (
	_ port.ConfirmationGate     = (*Terminal)(nil)
	_ remote.CredentialPrompter = (*Terminal)(nil)
)
