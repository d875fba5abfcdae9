package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
)

// Printer handles all display output for the CLI.
type Printer struct {
	JSON    bool
	Verbose bool
	Writer  io.Writer
	ErrOut  io.Writer
}

// NewPrinter creates a default Printer writing to stdout.
func NewPrinter(jsonMode, verbose bool) *Printer {
	return &Printer{JSON: jsonMode, Verbose: verbose, Writer: os.Stdout, ErrOut: os.Stderr}
}

var (
	okMark    = color.New(color.FgGreen).SprintFunc()
	dirtyMark = color.New(color.FgYellow).SprintFunc()
	errMark   = color.New(color.FgRed).SprintFunc()
)

// PrintMetadata renders a Metadata struct to the configured output.
func (p *Printer) PrintMetadata(m *Metadata) {
	if p.JSON {
		p.printJSON(m)
		return
	}
	p.printText(m)
}

func (p *Printer) printText(m *Metadata) {
	fmt.Fprintf(p.Writer, "File  : %s\n", m.FilePath)
	fmt.Fprintf(p.Writer, "Format: %s\n", m.Format)
	if len(m.Fields) == 0 {
		fmt.Fprintln(p.Writer, "(no harmful metadata found)")
		return
	}
	fmt.Fprintln(p.Writer)
	for _, f := range m.Fields {
		fmt.Fprintf(p.Writer, "  %-30s %s\n", f.Key+":", f.Value)
	}
	fmt.Fprintln(p.Writer)
}

type jsonField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type jsonOutput struct {
	FilePath string      `json:"file"`
	Format   string      `json:"format"`
	Clean    bool        `json:"clean"`
	Fields   []jsonField `json:"fields"`
}

func (p *Printer) printJSON(m *Metadata) {
	out := jsonOutput{
		FilePath: m.FilePath,
		Format:   m.Format,
		Clean:    m.Clean,
		Fields:   []jsonField{},
	}
	for _, f := range m.Fields {
		out.Fields = append(out.Fields, jsonField{Key: f.Key, Value: f.Value})
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Fprintln(p.Writer, string(b))
}

// PrintCheck prints the clean/dirty verdict for one file.
func (p *Printer) PrintCheck(path string, clean bool) {
	if p.JSON {
		b, _ := json.Marshal(map[string]any{"file": path, "clean": clean})
		fmt.Fprintln(p.Writer, string(b))
		return
	}
	if clean {
		fmt.Fprintf(p.Writer, "%s %s is clean\n", okMark("✓"), path)
		return
	}
	fmt.Fprintf(p.Writer, "%s %s is not clean\n", dirtyMark("!"), path)
}

// PrintSuccess prints a success message.
func (p *Printer) PrintSuccess(msg string) {
	if !p.JSON {
		fmt.Fprintln(p.Writer, okMark("✓")+" "+msg)
	}
}

// PrintInfo prints an info line (suppressed in JSON mode).
func (p *Printer) PrintInfo(msg string) {
	if !p.JSON {
		fmt.Fprintln(p.Writer, msg)
	}
}

// PrintError prints an error to the error writer.
func (p *Printer) PrintError(msg string) {
	fmt.Fprintln(p.ErrOut, errMark("✗ Error: ")+msg)
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
