// Package factory builds the stripper for a file from its detected format.
package factory

import (
	"fmt"
	"sort"

	"github.com/ankit-chaubey/mat-surgery/core"
	"github.com/ankit-chaubey/mat-surgery/core/audio"
	"github.com/ankit-chaubey/mat-surgery/core/convert"
	"github.com/ankit-chaubey/mat-surgery/core/document"
	"github.com/ankit-chaubey/mat-surgery/core/image"
	"github.com/ankit-chaubey/mat-surgery/core/torrent"
)

// Deps are the collaborators handed to adapters that need them. Nil
// rasterizer or assembler leave the PDF fallback disabled.
type Deps struct {
	Rasterizer convert.Rasterizer
	Assembler  convert.Assembler
}

// Formats lists every supported format.
var Formats = map[core.FormatID]core.FormatInfo{
	core.FmtTorrent: torrent.FormatInfo,
	core.FmtPDF:     document.Info,
	core.FmtJPEG:    image.JPEGInfo,
	core.FmtPNG:     image.PNGInfo,
	core.FmtMP3:     audio.MP3Info,
	core.FmtFLAC:    audio.FLACInfo,
}

// SortedFormats returns Formats ordered by name.
func SortedFormats() []core.FormatInfo {
	out := make([]core.FormatInfo, 0, len(Formats))
	for _, info := range Formats {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// New detects the format of path and returns its stripper.
func New(path string, opts core.Options, deps Deps) (core.Stripper, error) {
	id, err := core.DetectFormat(path)
	if err != nil {
		return nil, core.IOError(path, "detect format", err)
	}
	return NewFor(id, path, opts, deps)
}

// NewFor returns the stripper for a known format.
func NewFor(id core.FormatID, path string, opts core.Options, deps Deps) (core.Stripper, error) {
	switch id {
	case core.FmtTorrent:
		return stripper(torrent.New(path, opts))
	case core.FmtPDF:
		return stripper(document.New(path, opts, document.Pipeline{
			Rasterizer: deps.Rasterizer,
			Assembler:  deps.Assembler,
			StripImage: StripInPlace(opts, deps),
		}))
	case core.FmtJPEG:
		return stripper(image.NewJPEG(path, opts))
	case core.FmtPNG:
		return stripper(image.NewPNG(path, opts))
	case core.FmtMP3:
		return stripper(audio.NewMP3(path, opts))
	case core.FmtFLAC:
		return stripper(audio.NewFLAC(path, opts))
	default:
		return nil, core.UnsupportedError(path, fmt.Sprintf("no stripper for format %q", id))
	}
}

// stripper keeps a failed constructor from yielding a non-nil interface
// around a nil pointer.
func stripper[T core.Stripper](s T, err error) (core.Stripper, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// StripInPlace returns a function that strips any supported file in place,
// used by the PDF fallback on its page images.
func StripInPlace(opts core.Options, deps Deps) document.StripImageFunc {
	return func(path string) error {
		s, err := New(path, core.Options{ShredPasses: opts.ShredPasses, Logger: opts.Logger}, deps)
		if err != nil {
			return err
		}
		return s.RemoveAll()
	}
}
