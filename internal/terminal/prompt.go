package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrEmptyInput is returned when the user enters nothing at a required prompt.
var ErrEmptyInput = errors.New("no input given")

// Prompter reads answers from an input stream, hiding secrets when the
// input is a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

// NewPrompter prompts on out and reads from stdin.
func NewPrompter(out io.Writer) *Prompter {
	fd := int(os.Stdin.Fd())
	return &Prompter{in: bufio.NewReader(os.Stdin), out: out, fd: fd, tty: term.IsTerminal(fd)}
}

// NewPrompterFrom reads from r, which is never treated as a terminal.
func NewPrompterFrom(r io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(r), out: out, fd: -1}
}

// Line asks for a required single-line answer.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyInput
	}
	return s, nil
}

// Secret asks for a value without echoing it. When input is not a terminal
// (piped), the line is read as-is.
func (p *Prompter) Secret(label string) (string, error) {
	if !p.tty {
		fmt.Fprint(p.out, label)
		s, err := p.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && s != "") {
			return "", err
		}
		return strings.TrimRight(s, "\r\n"), nil
	}
	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Interactive reports whether prompts are answered on a terminal.
func (p *Prompter) Interactive() bool { return p.tty }
