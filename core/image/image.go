// Package image strips metadata from JPEG and PNG files.
//
// Only metadata containers are removed: JPEG application segments and
// comments, PNG text, EXIF and time chunks. Pixel data is copied untouched.
package image

import (
	"bytes"
	"fmt"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// exifWalker collects every EXIF tag as display text.
type exifWalker struct {
	meta map[string]string
}

func (w exifWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag.Type == tiff.DTAscii {
		if v, err := tag.StringVal(); err == nil {
			w.meta[string(name)] = v
			return nil
		}
	}
	w.meta[string(name)] = tag.String()
	return nil
}

// walkEXIF adds the tags of a raw TIFF-structured EXIF block to meta. A block
// goexif cannot parse is still reported, by size.
func walkEXIF(block []byte, meta map[string]string) {
	x, err := exif.Decode(bytes.NewReader(block))
	if err != nil {
		meta["EXIF"] = fmt.Sprintf("unreadable EXIF block (%d bytes)", len(block))
		return
	}
	if err := x.Walk(exifWalker{meta: meta}); err != nil {
		meta["EXIF"] = fmt.Sprintf("EXIF block (%d bytes)", len(block))
	}
}
