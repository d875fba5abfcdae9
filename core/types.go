// Package core defines the shared stripper contract, options, metadata
// types, and file primitives for MAT Surgery.
package core

import (
	"context"

	"go.uber.org/zap"
)

// Postfix is appended to a file name to build the path stripped output is
// written to before it is committed.
const Postfix = ".cleaned"

// HarmfulContent stands in for a metadata value that could not be decoded.
const HarmfulContent = "harmful content"

// Stripper is the interface every format adapter implements.
type Stripper interface {
	// RemoveAll strips every sensitive field. With Options.Backup the result
	// is left at path+Postfix, otherwise it replaces the original.
	RemoveAll() error
	// IsClean reports whether no sensitive field is present.
	IsClean() (bool, error)
	// GetMeta returns name → value for every sensitive field.
	GetMeta() (map[string]string, error)
}

// UglyStripper is implemented by adapters that offer a lossy last-resort
// strip when field-by-field removal is not possible.
type UglyStripper interface {
	Stripper
	RemoveAllUgly(ctx context.Context) error
}

// Options are shared by all adapters.
type Options struct {
	// Backup keeps the original untouched and leaves the stripped copy
	// next to it.
	Backup bool
	// RealName is the user-facing name of the file. Defaults to the path.
	RealName string
	// ShredPasses is how many times the original is overwritten before it
	// is replaced. Zero means DefaultShredPasses.
	ShredPasses int
	Logger      *zap.Logger
}

// WithDefaults fills unset fields for the file at path.
func (o Options) WithDefaults(path string) Options {
	if o.RealName == "" {
		o.RealName = path
	}
	if o.ShredPasses <= 0 {
		o.ShredPasses = DefaultShredPasses
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// MetaField represents a single metadata key-value pair.
type MetaField struct {
	Key   string // Field name as reported by the adapter
	Value string // Display value
}

// Metadata holds the sensitive metadata found in a single file.
type Metadata struct {
	FilePath string
	Format   string // Human-readable format name (e.g. "Torrent", "PDF")
	Clean    bool
	Fields   []MetaField
}

// NewMetadata builds a Metadata from a GetMeta result, with fields sorted by
// key for stable display.
func NewMetadata(path, format string, meta map[string]string) *Metadata {
	m := &Metadata{FilePath: path, Format: format, Clean: len(meta) == 0}
	for _, k := range SortedKeys(meta) {
		m.Fields = append(m.Fields, MetaField{Key: k, Value: meta[k]})
	}
	return m
}

// FormatInfo describes what a format handler supports.
type FormatInfo struct {
	Name       string   // "PDF"
	Extensions []string // [".pdf"]
	MediaType  string   // "image" | "audio" | "document" | "torrent"
	MIMETypes  []string
	CanUgly    bool     // Offers RemoveAllUgly
	Sensitive  []string // Field names the adapter classifies as sensitive
	Notes      string   // Any caveats or notes
}
