package image

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ankit-chaubey/mat-surgery/core"
)

// JPEGInfo describes the JPEG adapter.
var JPEGInfo = core.FormatInfo{
	Name:       "JPEG",
	Extensions: []string{".jpg", ".jpeg"},
	MediaType:  "image",
	MIMETypes:  []string{"image/jpeg"},
	Sensitive:  []string{"EXIF", "XMP", "IPTC", "APP2", "APP12", "Comment"},
	Notes:      "APP1, APP2, APP12, APP13 and COM segments. The Adobe APP14 color transform is kept.",
}

const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerAPP1 = 0xE1
	markerCOM  = 0xFE
	// markerScan tags the entropy-coded data that follows SOS.
	markerScan = 0x00
)

var (
	exifPrefix = []byte("Exif\x00\x00")
	xmpPrefix  = []byte("http://ns.adobe.com/xap/1.0/\x00")
)

// Metadata segments removed by RemoveAll. APP14 (Adobe) is not among them:
// it only flags the color transform, and CMYK/YCCK scans decode wrongly without it.
var jpegMetaMarkers = map[byte]string{
	0xE1: "APP1",  // EXIF, XMP
	0xE2: "APP2",  // ICC profile, FlashPix
	0xEC: "APP12", // Picture Info
	0xED: "APP13", // IPTC, Photoshop
	0xFE: "COM",
}

type jpegSegment struct {
	marker byte
	data   []byte
}

// JPEG implements core.Stripper for JPEG files.
type JPEG struct {
	path string
	opts core.Options
	segs []jpegSegment
}

// NewJPEG reads and splits the JPEG at path into segments.
func NewJPEG(path string, opts core.Options) (*JPEG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.IOError(path, "read", err)
	}
	segs, err := parseJPEGSegments(data)
	if err != nil {
		return nil, core.DecodeError(path, "parse JPEG", err)
	}
	return &JPEG{path: path, opts: opts.WithDefaults(path), segs: segs}, nil
}

func (j *JPEG) GetMeta() (map[string]string, error) {
	meta := map[string]string{}
	for _, seg := range j.segs {
		name, ok := jpegMetaMarkers[seg.marker]
		if !ok {
			continue
		}
		switch {
		case seg.marker == markerAPP1 && bytes.HasPrefix(seg.data, exifPrefix):
			walkEXIF(seg.data[len(exifPrefix):], meta)
		case seg.marker == markerAPP1 && bytes.HasPrefix(seg.data, xmpPrefix):
			meta["XMP"] = fmt.Sprintf("XMP packet (%d bytes)", len(seg.data)-len(xmpPrefix))
		case seg.marker == 0xED:
			meta["IPTC"] = fmt.Sprintf("Photoshop/IPTC block (%d bytes)", len(seg.data))
		case seg.marker == markerCOM:
			meta["Comment"] = strings.TrimRight(string(seg.data), "\x00")
		default:
			meta[name] = fmt.Sprintf("%d bytes", len(seg.data))
		}
	}
	return meta, nil
}

func (j *JPEG) IsClean() (bool, error) {
	for _, seg := range j.segs {
		if _, ok := jpegMetaMarkers[seg.marker]; ok {
			return false, nil
		}
	}
	return true, nil
}

func (j *JPEG) RemoveAll() error {
	kept := make([]jpegSegment, 0, len(j.segs))
	dropped := 0
	for _, seg := range j.segs {
		if _, ok := jpegMetaMarkers[seg.marker]; ok {
			dropped++
			continue
		}
		kept = append(kept, seg)
	}
	data, err := encodeJPEGSegments(kept)
	if err != nil {
		return core.SerializeError(j.path, "write JPEG", err)
	}
	out, err := core.Finish(j.path, data, j.opts)
	if err != nil {
		return err
	}
	j.segs = kept
	j.opts.Logger.Debug("jpeg stripped", zap.String("output", out), zap.Int("segments", dropped))
	return nil
}

// parseJPEGSegments splits data into marker segments. Everything after SOS is
// kept as one opaque scan segment.
func parseJPEGSegments(data []byte) ([]jpegSegment, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, fmt.Errorf("missing SOI marker")
	}
	segs := []jpegSegment{{marker: markerSOI}}

	i := 2
	for i < len(data) {
		if data[i] != 0xFF {
			return nil, fmt.Errorf("expected marker at offset %d", i)
		}
		// Fill bytes may precede a marker.
		for i < len(data) && data[i] == 0xFF {
			i++
		}
		if i >= len(data) {
			return nil, fmt.Errorf("truncated marker")
		}
		marker := data[i]
		i++

		if marker == markerEOI {
			segs = append(segs, jpegSegment{marker: markerEOI})
			return segs, nil
		}
		if i+2 > len(data) {
			return nil, fmt.Errorf("truncated segment %#x", marker)
		}
		segLen := int(binary.BigEndian.Uint16(data[i:i+2])) - 2
		i += 2
		if segLen < 0 || i+segLen > len(data) {
			return nil, fmt.Errorf("segment %#x overruns file", marker)
		}
		segs = append(segs, jpegSegment{marker: marker, data: data[i : i+segLen]})
		i += segLen

		if marker == markerSOS {
			segs = append(segs, jpegSegment{marker: markerScan, data: data[i:]})
			return segs, nil
		}
	}
	return segs, nil
}

func encodeJPEGSegments(segs []jpegSegment) ([]byte, error) {
	var buf bytes.Buffer
	for _, seg := range segs {
		switch seg.marker {
		case markerSOI, markerEOI:
			buf.Write([]byte{0xFF, seg.marker})
		case markerScan:
			buf.Write(seg.data)
		default:
			if len(seg.data)+2 > 0xFFFF {
				return nil, fmt.Errorf("segment %#x too large", seg.marker)
			}
			buf.Write([]byte{0xFF, seg.marker})
			binary.Write(&buf, binary.BigEndian, uint16(len(seg.data)+2))
			buf.Write(seg.data)
		}
	}
	return buf.Bytes(), nil
}
