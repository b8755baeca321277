package main

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// runConsole switches stdin to raw mode and reads commands through a line
// editor with history and tab completion. It returns on "exit" or Ctrl-D
// and always restores the terminal.
func runConsole(s *session) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("console needs an interactive terminal")
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return errors.Wrap(err, "set raw mode")
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "lpc1343> ")
	t.AutoCompleteCallback = completeCommand
	if w, h, err := term.GetSize(fd); err == nil {
		t.SetSize(w, h)
	}

	s.out = t
	s.printf("Console mode; tab completes commands, 'exit' returns\n")
	for {
		line, err := t.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read console line")
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit", "q":
			return nil
		}
		if err := s.exec(line); err != nil {
			s.printf("Error: %v\n", err)
		}
	}
}

// completeCommand completes the first word of the line on tab
func completeCommand(line string, pos int, key rune) (string, int, bool) {
	if key != '\t' || strings.Contains(line[:pos], " ") {
		return "", 0, false
	}

	prefix := line[:pos]
	var matches []string
	for name := range commands {
		if strings.HasPrefix(name, prefix) {
			matches = append(matches, name)
		}
	}
	if len(matches) != 1 {
		return "", 0, false
	}

	completed := matches[0] + " " + line[pos:]
	return completed, len(matches[0]) + 1, true
}
