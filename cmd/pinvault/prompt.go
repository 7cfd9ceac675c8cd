package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func isTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

// readSecret prompts on stderr and reads one line without echo when stdin is
// a terminal. Piped input is read line by line.
func (a *app) readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)

	if f, ok := cmd.InOrStdin().(*os.File); ok && isTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr()) // Add newline after hidden input
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return string(secret), nil
	}

	// Fallback for piped input
	return a.readLine()
}

// readLine reads a single line from stdin, trimming trailing newline
func (a *app) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	if err == io.EOF && line == "" {
		return "", io.ErrUnexpectedEOF
	}
	value := strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(value, "\r"), nil
}

// confirm asks a yes/no question. Anything but y or Y, including a read
// error, is no.
func (a *app) confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N]: ", question)
	response, err := a.readLine()
	if err != nil {
		return false
	}
	response = strings.TrimSpace(response)
	return response == "y" || response == "Y"
}
