package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/Alia5/matrixkb/layout"
)

// LayoutCommand groups layout subcommands.
type LayoutCommand struct {
	List LayoutList `cmd:"" help:"List built-in keyboard models"`
	Show LayoutShow `cmd:"" help:"Print a layout as a grid or as a layout file"`
}

type LayoutList struct {
	Out io.Writer `kong:"-"`
}

func (c *LayoutList) Run() error {
	out := writerOr(c.Out)
	for _, name := range layout.Models() {
		l, err := layout.Model(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%dx%d\n", name, l.Rows, l.Cols)
	}
	return nil
}

type LayoutShow struct {
	Layout string    `arg:"" optional:"" help:"Built-in model or layout file" default:"demo"`
	Format string    `help:"Output format" enum:"text,json,yaml,toml" default:"text"`
	Out    io.Writer `kong:"-"`
}

func (c *LayoutShow) Run() error {
	l, err := layout.Resolve(c.Layout)
	if err != nil {
		return err
	}
	out := writerOr(c.Out)
	if c.Format != "text" {
		data, err := layout.Encode(l, c.Format)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	fmt.Fprintf(out, "%s (%dx%d)\n\n", l.Name, l.Rows, l.Cols)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for r := 0; r < l.Rows; r++ {
		cells := make([]string, l.Cols)
		for c := range cells {
			k := l.Index(r, c)
			cells[c] = l.Entry(k).String()
			if l.IsMagic(k) {
				cells[c] += "*"
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	cmds := l.File().Commands
	fmt.Fprintf(out, "\n* magic key %s: %s types %s twice, %s records, %s replays, %s enters the bootloader\n",
		cmds.Magic, cmds.Macro, cmds.MacroKey, cmds.Record, cmds.Replay, cmds.Bootloader)
	return nil
}

func writerOr(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
