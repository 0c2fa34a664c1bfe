package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// prompter reads answers from the command's stdin. A single prompter must be
// shared by everything reading stdin within one command, since it buffers.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.ErrOrStderr()}
}

// readLine prints prompt and returns the trimmed answer. It returns io.EOF
// once stdin is exhausted and nothing was typed.
func (p *prompter) readLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a (y/N) question. End of input counts as no.
func (p *prompter) confirm(message string) (bool, error) {
	answer, err := p.readLine(message + " (y/N) ")
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(p.out)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

func (p *prompter) confirmUnblock(count int) (bool, error) {
	return p.confirm(fmt.Sprintf("Remove the Mark of the Web from %d file(s)?", count))
}
