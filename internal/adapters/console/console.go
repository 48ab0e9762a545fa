package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ghalamif/sensorlog/internal/domain"
	"github.com/ghalamif/sensorlog/internal/ports"
)

// Display echoes records to the operator, one line each.
type Display struct {
	out io.Writer
}

// New returns a Display writing to out, or stdout when out is nil.
func New(out io.Writer) *Display {
	if out == nil {
		out = os.Stdout
	}
	return &Display{out: out}
}

func (d *Display) Show(r *domain.Record) {
	fmt.Fprintf(d.out, "%s, [%s]\n", r.Clock(), strings.Join(r.Fields, ", "))
}

func (d *Display) Notice(format string, args ...any) {
	fmt.Fprintf(d.out, format+"\n", args...)
}

var _ ports.Display = (*Display)(nil)
