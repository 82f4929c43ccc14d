package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/peterh/liner"

	"github.com/calvinalkan/salesdash/internal/ingest"
)

// newPrompter returns a line editor when reading the process stdin and a
// plain line reader otherwise. The returned func releases the terminal.
func newPrompter(in io.Reader, promptOut io.Writer) (ingest.Prompter, func()) {
	if f, ok := in.(*os.File); ok && f == os.Stdin {
		l := liner.NewLiner()
		l.SetCtrlCAborts(true)

		return linerPrompter{l}, func() { _ = l.Close() }
	}

	return &linePrompter{scanner: bufio.NewScanner(in), out: promptOut}, func() {}
}

// linerPrompter maps Ctrl-C to ingest.ErrAborted.
type linerPrompter struct {
	state *liner.State
}

func (p linerPrompter) Prompt(prompt string) (string, error) {
	line, err := p.state.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", ingest.ErrAborted
	}

	if err == nil {
		p.state.AppendHistory(line)
	}

	return line, err
}

// linePrompter reads answers one per line from a non-interactive reader.
type linePrompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (p *linePrompter) Prompt(prompt string) (string, error) {
	_, _ = fmt.Fprint(p.out, prompt)

	if !p.scanner.Scan() {
		err := p.scanner.Err()
		if err != nil {
			return "", err
		}

		return "", io.EOF
	}

	return p.scanner.Text(), nil
}
