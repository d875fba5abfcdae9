package image

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/ankit-chaubey/mat-surgery/core"
)

// PNGInfo describes the PNG adapter.
var PNGInfo = core.FormatInfo{
	Name:       "PNG",
	Extensions: []string{".png"},
	MediaType:  "image",
	MIMETypes:  []string{"image/png"},
	Sensitive:  []string{"tEXt", "iTXt", "zTXt", "eXIf", "tIME"},
	Notes:      "Text, EXIF and modification-time chunks.",
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

var pngMetaChunks = map[string]bool{
	"tEXt": true,
	"iTXt": true,
	"zTXt": true,
	"eXIf": true,
	"tIME": true,
}

// maxTextChunk bounds zTXt inflation.
const maxTextChunk = 1 << 20

type pngChunk struct {
	typ  string
	data []byte
}

// PNG implements core.Stripper for PNG files.
type PNG struct {
	path   string
	opts   core.Options
	chunks []pngChunk
}

// NewPNG reads and splits the PNG at path into chunks.
func NewPNG(path string, opts core.Options) (*PNG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.IOError(path, "read", err)
	}
	chunks, err := parsePNGChunks(data)
	if err != nil {
		return nil, core.DecodeError(path, "parse PNG", err)
	}
	return &PNG{path: path, opts: opts.WithDefaults(path), chunks: chunks}, nil
}

func (p *PNG) GetMeta() (map[string]string, error) {
	meta := map[string]string{}
	for _, c := range p.chunks {
		switch c.typ {
		case "tEXt":
			key, val, ok := bytes.Cut(c.data, []byte{0})
			if !ok {
				return nil, core.DecodeError(p.path, "tEXt chunk without keyword", nil)
			}
			meta[string(key)] = string(val)
		case "zTXt":
			key, rest, ok := bytes.Cut(c.data, []byte{0})
			if !ok || len(rest) < 1 {
				return nil, core.DecodeError(p.path, "malformed zTXt chunk", nil)
			}
			text, err := inflate(rest[1:])
			if err != nil {
				return nil, core.DecodeError(p.path, "zTXt "+string(key), err)
			}
			meta[string(key)] = text
		case "iTXt":
			key, text, err := parseITXt(c.data)
			if err != nil {
				return nil, core.DecodeError(p.path, "iTXt chunk", err)
			}
			meta[key] = text
		case "eXIf":
			walkEXIF(c.data, meta)
		case "tIME":
			if len(c.data) != 7 {
				return nil, core.DecodeError(p.path, "tIME chunk length", nil)
			}
			year := binary.BigEndian.Uint16(c.data[0:2])
			meta["LastModified"] = fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
				year, c.data[2], c.data[3], c.data[4], c.data[5], c.data[6])
		}
	}
	return meta, nil
}

func (p *PNG) IsClean() (bool, error) {
	for _, c := range p.chunks {
		if pngMetaChunks[c.typ] {
			return false, nil
		}
	}
	return true, nil
}

func (p *PNG) RemoveAll() error {
	kept := make([]pngChunk, 0, len(p.chunks))
	for _, c := range p.chunks {
		if !pngMetaChunks[c.typ] {
			kept = append(kept, c)
		}
	}
	out, err := core.Finish(p.path, encodePNGChunks(kept), p.opts)
	if err != nil {
		return err
	}
	p.opts.Logger.Debug("png stripped", zap.String("output", out), zap.Int("chunks", len(p.chunks)-len(kept)))
	p.chunks = kept
	return nil
}

// parseITXt returns the keyword and text of an iTXt chunk:
// keyword, flag, method, language, translated keyword, text.
func parseITXt(data []byte) (string, string, error) {
	key, rest, ok := bytes.Cut(data, []byte{0})
	if !ok || len(rest) < 2 {
		return "", "", fmt.Errorf("truncated header")
	}
	compressed := rest[0] == 1
	rest = rest[2:]
	for i := 0; i < 2; i++ {
		if _, rest, ok = bytes.Cut(rest, []byte{0}); !ok {
			return "", "", fmt.Errorf("truncated header")
		}
	}
	if !compressed {
		return string(key), string(rest), nil
	}
	text, err := inflate(rest)
	return string(key), text, err
}

func inflate(data []byte) (string, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, maxTextChunk))
	return string(out), err
}

func parsePNGChunks(data []byte) ([]pngChunk, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, fmt.Errorf("missing PNG signature")
	}
	var chunks []pngChunk
	i := len(pngSignature)
	for i < len(data) {
		if i+8 > len(data) {
			return nil, fmt.Errorf("truncated chunk header at offset %d", i)
		}
		length := int(binary.BigEndian.Uint32(data[i : i+4]))
		typ := string(data[i+4 : i+8])
		start := i + 8
		if length < 0 || start+length+4 > len(data) {
			return nil, fmt.Errorf("chunk %s overruns file", typ)
		}
		chunks = append(chunks, pngChunk{typ: typ, data: data[start : start+length]})
		i = start + length + 4
		if typ == "IEND" {
			return chunks, nil
		}
	}
	return nil, fmt.Errorf("missing IEND chunk")
}

func encodePNGChunks(chunks []pngChunk) []byte {
	var buf bytes.Buffer
	buf.Write(pngSignature)
	for _, c := range chunks {
		writePNGChunk(&buf, c.typ, c.data)
	}
	return buf.Bytes()
}

func writePNGChunk(w *bytes.Buffer, typ string, data []byte) {
	binary.Write(w, binary.BigEndian, uint32(len(data)))
	w.WriteString(typ)
	w.Write(data)
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	binary.Write(w, binary.BigEndian, crc.Sum32())
}
