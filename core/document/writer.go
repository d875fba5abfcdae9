package document

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// writeDocument serializes every in-use object of ctx as a classic PDF with a
// plain cross-reference table. Object and xref streams are not re-emitted;
// their members are written as ordinary objects. Stream data is copied raw,
// so page content keeps its original encoding.
func writeDocument(ctx *model.Context, w io.Writer) error {
	if ctx.Root == nil {
		return fmt.Errorf("document has no catalog")
	}

	nrs := make([]int, 0, len(ctx.Table))
	for nr, e := range ctx.Table {
		if nr == 0 || e == nil || e.Free {
			continue
		}
		nrs = append(nrs, nr)
	}
	sort.Ints(nrs)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xE2\xE3\xCF\xD3\n", ctx.XRefTable.Version().String())

	offsets := map[int]int{}
	gens := map[int]int{}
	for _, nr := range nrs {
		e := ctx.Table[nr]
		gen := 0
		if e.Generation != nil {
			gen = *e.Generation
		}
		o := e.Object
		if o == nil {
			var err error
			o, err = ctx.Dereference(*types.NewIndirectRef(nr, gen))
			if err != nil {
				return fmt.Errorf("object %d: %w", nr, err)
			}
		}
		switch o.(type) {
		case types.ObjectStreamDict, *types.ObjectStreamDict, types.XRefStreamDict, *types.XRefStreamDict:
			continue
		}

		offsets[nr] = buf.Len()
		gens[nr] = gen
		fmt.Fprintf(&buf, "%d %d obj\n", nr, gen)
		writeObject(&buf, o)
		buf.WriteString("\nendobj\n")
	}

	size := 1
	if len(nrs) > 0 {
		size = nrs[len(nrs)-1] + 1
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	for nr := 0; nr < size; nr++ {
		off, ok := offsets[nr]
		if !ok {
			buf.WriteString("0000000000 65535 f\r\n")
			continue
		}
		fmt.Fprintf(&buf, "%010d %05d n\r\n", off, gens[nr])
	}

	trailer := types.Dict{
		"Size": types.Integer(size),
		"Root": *ctx.Root,
	}
	if ctx.Info != nil {
		if _, ok := offsets[ctx.Info.ObjectNumber.Value()]; ok {
			trailer["Info"] = *ctx.Info
		}
	}
	if len(ctx.ID) > 0 {
		trailer["ID"] = ctx.ID
	}
	fmt.Fprintf(&buf, "trailer\n%s\nstartxref\n%d\n%%%%EOF\n", trailer.PDFString(), xref)

	_, err := w.Write(buf.Bytes())
	return err
}

func writeObject(buf *bytes.Buffer, o types.Object) {
	switch v := o.(type) {
	case types.StreamDict:
		writeStream(buf, v)
	case *types.StreamDict:
		writeStream(buf, *v)
	case nil:
		buf.WriteString("null")
	default:
		buf.WriteString(o.PDFString())
	}
}

func writeStream(buf *bytes.Buffer, sd types.StreamDict) {
	d := types.Dict{}
	for k, v := range sd.Dict {
		d[k] = v
	}
	d["Length"] = types.Integer(len(sd.Raw))
	buf.WriteString(d.PDFString())
	buf.WriteString("\nstream\n")
	buf.Write(sd.Raw)
	buf.WriteString("\nendstream")
}
