package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// printer writes human output, colored only when w is a terminal.
type printer struct {
	w io.Writer

	id      func(a ...any) string
	class   func(a ...any) string
	muted   func(a ...any) string
	warn    func(a ...any) string
	added   func(a ...any) string
	removed func(a ...any) string
}

func newPrinter(w io.Writer) *printer {
	enabled := false
	if f, ok := w.(*os.File); ok {
		enabled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	paint := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return &printer{
		w:       w,
		id:      paint(color.FgCyan, color.Bold),
		class:   paint(color.FgYellow),
		muted:   paint(color.Faint),
		warn:    paint(color.FgRed),
		added:   paint(color.FgGreen),
		removed: paint(color.FgRed),
	}
}

func stdout() *printer {
	return newPrinter(os.Stdout)
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) println(args ...any) {
	fmt.Fprintln(p.w, args...)
}

func (p *printer) object(id, class string) string {
	return fmt.Sprintf("%s %s", p.id(id), p.class(class))
}
