package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ankit-chaubey/mat-surgery/core"
)

// FLACInfo describes the FLAC adapter.
var FLACInfo = core.FormatInfo{
	Name:       "FLAC",
	Extensions: []string{".flac"},
	MediaType:  "audio",
	MIMETypes:  []string{"audio/flac"},
	Sensitive:  []string{"VORBIS_COMMENT", "PICTURE"},
	Notes:      "Vorbis comment and embedded picture blocks.",
}

const (
	blockStreamInfo    = 0
	blockVorbisComment = 4
	blockPicture       = 6
)

var flacMagic = []byte("fLaC")

// FLAC metadata blocks removed by RemoveAll.
var flacMetaBlocks = map[byte]bool{
	blockVorbisComment: true,
	blockPicture:       true,
}

type flacBlock struct {
	blockType byte
	data      []byte
}

// FLAC implements core.Stripper for FLAC files.
type FLAC struct {
	path   string
	opts   core.Options
	raw    []byte
	blocks []flacBlock
	audio  int
}

// NewFLAC reads the FLAC at path and splits its metadata blocks.
func NewFLAC(path string, opts core.Options) (*FLAC, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.IOError(path, "read", err)
	}
	blocks, audio, err := parseFLACBlocks(data)
	if err != nil {
		return nil, core.DecodeError(path, "parse FLAC", err)
	}
	return &FLAC{path: path, opts: opts.WithDefaults(path), raw: data, blocks: blocks, audio: audio}, nil
}

func (f *FLAC) GetMeta() (map[string]string, error) {
	meta, err := readTags(bytes.NewReader(f.raw))
	if err != nil {
		return nil, core.DecodeError(f.path, "read tags", err)
	}
	for _, b := range f.blocks {
		if b.blockType == blockVorbisComment {
			if vendor := vorbisVendor(b.data); vendor != "" {
				meta["Vendor"] = vendor
			}
		}
	}
	return meta, nil
}

func (f *FLAC) IsClean() (bool, error) {
	for _, b := range f.blocks {
		if flacMetaBlocks[b.blockType] {
			return false, nil
		}
	}
	return true, nil
}

func (f *FLAC) RemoveAll() error {
	kept := make([]flacBlock, 0, len(f.blocks))
	for _, b := range f.blocks {
		if !flacMetaBlocks[b.blockType] {
			kept = append(kept, b)
		}
	}
	data := encodeFLAC(kept, f.raw[f.audio:])
	out, err := core.Finish(f.path, data, f.opts)
	if err != nil {
		return err
	}
	removed := len(f.blocks) - len(kept)
	blocks, audio, err := parseFLACBlocks(data)
	if err != nil {
		return core.SerializeError(f.path, "re-read stripped FLAC", err)
	}
	f.raw, f.blocks, f.audio = data, blocks, audio
	f.opts.Logger.Debug("flac stripped", zap.String("output", out), zap.Int("blocks", removed))
	return nil
}

// parseFLACBlocks returns the metadata blocks and the offset of the first
// audio frame.
func parseFLACBlocks(data []byte) ([]flacBlock, int, error) {
	if !bytes.HasPrefix(data, flacMagic) {
		return nil, 0, fmt.Errorf("missing fLaC marker")
	}
	var blocks []flacBlock
	i := len(flacMagic)
	for {
		if i+4 > len(data) {
			return nil, i, fmt.Errorf("metadata block header truncated")
		}
		header := binary.BigEndian.Uint32(data[i : i+4])
		last := header>>31 == 1
		blockType := byte((header >> 24) & 0x7F)
		length := int(header & 0xFFFFFF)
		i += 4
		if i+length > len(data) {
			return nil, i, fmt.Errorf("metadata block %d truncated", blockType)
		}
		blocks = append(blocks, flacBlock{blockType: blockType, data: data[i : i+length]})
		i += length
		if last {
			break
		}
	}
	if len(blocks) == 0 || blocks[0].blockType != blockStreamInfo {
		return nil, i, fmt.Errorf("first metadata block is not STREAMINFO")
	}
	return blocks, i, nil
}

func encodeFLAC(blocks []flacBlock, audio []byte) []byte {
	var buf bytes.Buffer
	buf.Write(flacMagic)
	for i, b := range blocks {
		header := uint32(b.blockType)<<24 | uint32(len(b.data))
		if i == len(blocks)-1 {
			header |= 1 << 31
		}
		binary.Write(&buf, binary.BigEndian, header)
		buf.Write(b.data)
	}
	buf.Write(audio)
	return buf.Bytes()
}

// vorbisVendor returns the encoder string that opens a VORBIS_COMMENT block.
func vorbisVendor(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	n := int(binary.LittleEndian.Uint32(data[0:4]))
	if n < 0 || 4+n > len(data) {
		return ""
	}
	return string(data[4 : 4+n])
}
