package main

import (
	"bufio"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const defaultPrompt = "gradebook> "

// console reads command lines and shows output. *term.Terminal is one.
type console interface {
	io.Writer
	ReadLine() (string, error)
	SetPrompt(prompt string)
}

// openConsole returns a line editing terminal when in is a terminal, a plain line reader otherwise.
// restore must be called before exiting.
func openConsole(in *os.File, out io.Writer) (con console, restore func(), err error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return newLineConsole(in, out), func() {}, nil
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, nil, err
	}
	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, defaultPrompt)
	return t, func() { _ = term.Restore(fd, state) }, nil
}

type lineConsole struct {
	scanner *bufio.Scanner
	out     io.Writer
	prompt  string
}

func newLineConsole(in io.Reader, out io.Writer) *lineConsole {
	return &lineConsole{scanner: bufio.NewScanner(in), out: out, prompt: defaultPrompt}
}

func (c *lineConsole) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c *lineConsole) SetPrompt(prompt string) { c.prompt = prompt }

func (c *lineConsole) ReadLine() (string, error) {
	_, _ = io.WriteString(c.out, c.prompt)
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return c.scanner.Text(), nil
}

// confirmer asks a yes/no question on con. Anything but y or yes declines.
func confirmer(con console) func(prompt string) bool {
	return func(prompt string) bool {
		con.SetPrompt(prompt + " [y/N] ")
		defer con.SetPrompt(defaultPrompt)

		line, err := con.ReadLine()
		if err != nil {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	}
}
