// internal/presentation/renderer.go
package presentation

import (
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Renderer writes Markdown, styled with glamour when out is a terminal.
type Renderer struct {
	out    io.Writer
	render func(string) (string, error)
}

// NewRenderer picks styled output for terminals and plain Markdown otherwise.
func NewRenderer(out io.Writer, plain bool) *Renderer {
	r := &Renderer{out: out}
	if plain || !IsTerminal(out) {
		return r
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return r
	}
	r.render = tr.Render
	return r
}

func (r *Renderer) Print(markdown string) error {
	s := markdown
	if r.render != nil {
		if styled, err := r.render(markdown); err == nil {
			s = styled
		}
	}
	_, err := io.WriteString(r.out, s)
	return err
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
