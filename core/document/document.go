// Package document strips metadata from PDF files.
//
// The document Info dictionary and the catalog's XMP stream are treated as
// sensitive. Page content is never touched by RemoveAll; RemoveAllUgly
// rasterizes pages as a last resort.
package document

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"

	"github.com/ankit-chaubey/mat-surgery/core"
	"github.com/ankit-chaubey/mat-surgery/core/convert"
)

func init() {
	// pdfcpu would otherwise create a config directory under $HOME.
	api.DisableConfigDir()
}

// InfoFields are the standard Info keys that identify a document's author
// and toolchain. Any other Info key is stripped as well.
var InfoFields = []string{"Title", "Author", "Producer", "Creator", "CreationDate", "ModDate"}

// xmpKey is the GetMeta key reporting a catalog XMP stream.
const xmpKey = "Metadata"

// Info describes the PDF adapter.
var Info = core.FormatInfo{
	Name:       "PDF",
	Extensions: []string{".pdf"},
	MediaType:  "document",
	MIMETypes:  []string{"application/pdf"},
	CanUgly:    true,
	Sensitive:  append(append([]string{}, InfoFields...), xmpKey),
	Notes:      "Info dictionary and XMP stream. Encrypted files need --ugly.",
}

// StripImageFunc strips a generated page image in place.
type StripImageFunc func(path string) error

// Pipeline holds the collaborators of the rasterize fallback.
type Pipeline struct {
	Rasterizer convert.Rasterizer
	Assembler  convert.Assembler
	StripImage StripImageFunc
}

// Stripper implements core.UglyStripper for PDF files.
type Stripper struct {
	path     string
	opts     core.Options
	ctx      *model.Context
	pipeline Pipeline
}

// New reads the PDF at path.
func New(path string, opts core.Options, p Pipeline) (*Stripper, error) {
	ctx, err := readContext(path)
	if err != nil {
		return nil, err
	}
	return &Stripper{path: path, opts: opts.WithDefaults(path), ctx: ctx, pipeline: p}, nil
}

func readContext(path string) (*model.Context, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.IOError(path, "open", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return nil, core.DecodeError(path, "parse PDF", err)
	}
	return ctx, nil
}

// infoDict returns the Info dictionary, or nil when the document has none.
func (s *Stripper) infoDict() (types.Dict, error) {
	if s.ctx.Info == nil {
		return nil, nil
	}
	d, err := s.ctx.DereferenceDict(*s.ctx.Info)
	if err != nil {
		return nil, core.DecodeError(s.path, "Info dictionary", err)
	}
	return d, nil
}

// xmpRef returns the catalog's Metadata entry, if any.
func (s *Stripper) xmpRef() (types.Dict, types.Object, error) {
	cat, err := s.ctx.Catalog()
	if err != nil {
		return nil, nil, core.DecodeError(s.path, "document catalog", err)
	}
	o, found := cat.Find(xmpKey)
	if !found {
		return cat, nil, nil
	}
	return cat, o, nil
}

// decodeValue renders an Info value as text, with PDF string escaping and
// UTF-16 encoding removed.
func (s *Stripper) decodeValue(key string, o types.Object) (string, error) {
	o, err := s.ctx.Dereference(o)
	if err != nil {
		return "", core.DecodeError(s.path, fmt.Sprintf("Info/%s", key), err)
	}
	switch v := o.(type) {
	case nil:
		return "", nil
	case types.StringLiteral:
		str, err := types.StringLiteralToString(v)
		if err != nil {
			return "", core.DecodeError(s.path, fmt.Sprintf("Info/%s", key), err)
		}
		return str, nil
	case types.HexLiteral:
		str, err := types.HexLiteralToString(v)
		if err != nil {
			return "", core.DecodeError(s.path, fmt.Sprintf("Info/%s", key), err)
		}
		return str, nil
	case types.Name:
		return string(v), nil
	default:
		return o.String(), nil
	}
}

func (s *Stripper) GetMeta() (map[string]string, error) {
	meta := map[string]string{}
	info, err := s.infoDict()
	if err != nil {
		return nil, err
	}
	for k, o := range info {
		v, err := s.decodeValue(k, o)
		if err != nil {
			return nil, err
		}
		if v != "" {
			meta[k] = v
		}
	}

	_, xmp, err := s.xmpRef()
	if err != nil {
		return nil, err
	}
	if xmp != nil {
		meta[xmpKey] = s.describeXMP(xmp)
	}
	return meta, nil
}

func (s *Stripper) describeXMP(o types.Object) string {
	o, err := s.ctx.Dereference(o)
	if err != nil {
		return "XMP packet"
	}
	if sd, ok := o.(types.StreamDict); ok {
		return fmt.Sprintf("XMP packet (%d bytes)", len(sd.Raw))
	}
	return "XMP packet"
}

func (s *Stripper) IsClean() (bool, error) {
	meta, err := s.GetMeta()
	if err != nil {
		return false, err
	}
	return len(meta) == 0, nil
}

// RemoveAll blanks every Info entry, drops the XMP stream and rewrites the
// document.
func (s *Stripper) RemoveAll() error {
	if s.ctx.Encrypt != nil {
		return core.SerializeError(s.path, "encrypted documents cannot be rewritten field by field", nil)
	}
	if err := s.blank(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := writeDocument(s.ctx, &buf); err != nil {
		return core.SerializeError(s.path, "write document", err)
	}
	out, err := core.Finish(s.path, buf.Bytes(), s.opts)
	if err != nil {
		return err
	}
	s.opts.Logger.Debug("pdf stripped", zap.String("file", s.path), zap.String("output", out))
	return nil
}

// blank empties the Info dictionary in memory and frees every object that
// only carried metadata, so the writer does not emit it.
func (s *Stripper) blank() error {
	info, err := s.infoDict()
	if err != nil {
		return err
	}
	for k, o := range info {
		if ir, ok := o.(types.IndirectRef); ok {
			s.free(ir)
		}
		info[k] = types.StringLiteral("")
	}
	// Keep the standard keys present but empty, as readers expect them.
	if info != nil {
		for _, k := range InfoFields {
			info[k] = types.StringLiteral("")
		}
	}

	cat, xmp, err := s.xmpRef()
	if err != nil {
		return err
	}
	if xmp != nil {
		if ir, ok := xmp.(types.IndirectRef); ok {
			s.free(ir)
		}
		delete(cat, xmpKey)
	}
	return nil
}

func (s *Stripper) free(ir types.IndirectRef) {
	nr := ir.ObjectNumber.Value()
	if e, ok := s.ctx.Table[nr]; ok && e != nil {
		e.Free = true
		e.Object = nil
	}
}
