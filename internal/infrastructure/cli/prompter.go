package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dvaldes/tars-go/internal/domain"
	"github.com/dvaldes/tars-go/internal/ports"
)

// Prompter answers elevation requests on the terminal. It is the
// presentation-side half of the sudo handshake: the worker goroutine blocks
// on the request while the prompter asks the user here.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter constructs a prompter referencing stdio.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Present implements ports.SudoPresenter. The question is asked on its own
// goroutine so the caller is never blocked; the answer resolves the request
// and releases the waiting worker.
func (p *Prompter) Present(req *domain.SudoRequest) {
	go func() {
		fmt.Fprintf(p.out, "\nThis command needs elevated privileges:\n  %s\n", req.Command)
		fmt.Fprint(p.out, "Allow it? [y/N]: ")
		line, err := p.in.ReadString('\n')
		if err != nil {
			req.Deny()
			return
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		req.Resolve(answer == "y" || answer == "yes" || answer == "s" || answer == "si")
	}()
}

var _ ports.SudoPresenter = (*Prompter)(nil)
