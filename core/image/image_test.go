package image

import (
	"bytes"
	"encoding/binary"
	goimage "image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/mat-surgery/core"
)

func sampleImage() goimage.Image {
	img := goimage.NewRGBA(goimage.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{uint8(x * 16), uint8(y * 16), 128, 255})
		}
	}
	return img
}

// exifBlock builds a little-endian TIFF block with ASCII tags in IFD0.
func exifBlock(tags []uint16, values []string) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian
	buf.WriteString("II")
	binary.Write(&buf, le, uint16(0x2A))
	binary.Write(&buf, le, uint32(8))

	valOffset := 8 + 2 + len(tags)*12 + 4
	var vals bytes.Buffer
	binary.Write(&buf, le, uint16(len(tags)))
	for i, tag := range tags {
		v := values[i] + "\x00"
		binary.Write(&buf, le, tag)
		binary.Write(&buf, le, uint16(2))
		binary.Write(&buf, le, uint32(len(v)))
		if len(v) <= 4 {
			pad := make([]byte, 4)
			copy(pad, v)
			buf.Write(pad)
			continue
		}
		binary.Write(&buf, le, uint32(valOffset+vals.Len()))
		vals.WriteString(v)
	}
	binary.Write(&buf, le, uint32(0))
	buf.Write(vals.Bytes())
	return buf.Bytes()
}

func segment(marker byte, data []byte) []byte {
	out := []byte{0xFF, marker, 0, 0}
	binary.BigEndian.PutUint16(out[2:], uint16(len(data)+2))
	return append(out, data...)
}

// sampleJPEG encodes a small image and inserts segs right after SOI.
func sampleJPEG(t *testing.T, segs ...[]byte) []byte {
	t.Helper()
	var enc bytes.Buffer
	require.NoError(t, jpeg.Encode(&enc, sampleImage(), nil))
	raw := enc.Bytes()

	out := append([]byte{}, raw[:2]...)
	for _, s := range segs {
		out = append(out, s...)
	}
	return append(out, raw[2:]...)
}

func samplePNG(t *testing.T, extra ...pngChunk) []byte {
	t.Helper()
	var enc bytes.Buffer
	require.NoError(t, png.Encode(&enc, sampleImage()))
	chunks, err := parsePNGChunks(enc.Bytes())
	require.NoError(t, err)

	// Ancillary chunks go right after IHDR.
	all := append([]pngChunk{chunks[0]}, extra...)
	all = append(all, chunks[1:]...)
	return encodePNGChunks(all)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func dirtyJPEG(t *testing.T) []byte {
	exif := append([]byte("Exif\x00\x00"), exifBlock([]uint16{0x010F, 0x0110}, []string{"Canon", "EOS 5D"})...)
	return sampleJPEG(t,
		segment(0xE1, exif),
		segment(0xE1, append(append([]byte{}, xmpPrefix...), []byte("<x:xmpmeta/>")...)),
		segment(0xFE, []byte("shot by jane")),
	)
}

func TestJPEG_GetMeta(t *testing.T) {
	path := writeFile(t, "photo.jpg", dirtyJPEG(t))
	j, err := NewJPEG(path, core.Options{})
	require.NoError(t, err)

	meta, err := j.GetMeta()
	require.NoError(t, err)
	assert.Equal(t, "Canon", meta["Make"])
	assert.Equal(t, "EOS 5D", meta["Model"])
	assert.Equal(t, "shot by jane", meta["Comment"])
	assert.Contains(t, meta["XMP"], "XMP packet")

	clean, err := j.IsClean()
	require.NoError(t, err)
	assert.False(t, clean)
}

func TestJPEG_KeepsAdobeSegment(t *testing.T) {
	// "Adobe", version 100, flags0, flags1, transform 1 (YCbCr).
	adobe := segment(0xEE, []byte{'A', 'd', 'o', 'b', 'e', 0, 100, 0, 0, 0, 0, 1})
	path := writeFile(t, "photo.jpg", sampleJPEG(t, adobe, segment(0xFE, []byte("shot by jane"))))
	j, err := NewJPEG(path, core.Options{})
	require.NoError(t, err)
	require.NoError(t, j.RemoveAll())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(out, adobe))
	assert.False(t, bytes.Contains(out, []byte("shot by jane")))

	clean, err := j.IsClean()
	require.NoError(t, err)
	assert.True(t, clean)
}

func TestJPEG_RemoveAllKeepsPixels(t *testing.T) {
	path := writeFile(t, "photo.jpg", dirtyJPEG(t))
	j, err := NewJPEG(path, core.Options{})
	require.NoError(t, err)
	require.NoError(t, j.RemoveAll())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(out, []byte("Canon")))
	assert.False(t, bytes.Contains(out, []byte("shot by jane")))

	want, err := jpeg.Decode(bytes.NewReader(sampleJPEG(t)))
	require.NoError(t, err)
	got, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	again, err := NewJPEG(path, core.Options{})
	require.NoError(t, err)
	clean, err := again.IsClean()
	require.NoError(t, err)
	assert.True(t, clean)
	_, err = os.Stat(path + core.Postfix)
	assert.True(t, os.IsNotExist(err))
}

func TestJPEG_Backup(t *testing.T) {
	data := dirtyJPEG(t)
	path := writeFile(t, "photo.jpg", data)
	j, err := NewJPEG(path, core.Options{Backup: true})
	require.NoError(t, err)
	require.NoError(t, j.RemoveAll())

	orig, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, orig)

	out, err := NewJPEG(path+core.Postfix, core.Options{})
	require.NoError(t, err)
	clean, err := out.IsClean()
	require.NoError(t, err)
	assert.True(t, clean)
}

func TestJPEG_NotAJPEG(t *testing.T) {
	path := writeFile(t, "photo.jpg", []byte("GIF89a"))
	_, err := NewJPEG(path, core.Options{})
	assert.True(t, core.IsKind(err, core.KindDecode))
}

func TestParseJPEGSegments_ScanDataIsOpaque(t *testing.T) {
	raw := sampleJPEG(t)
	segs, err := parseJPEGSegments(raw)
	require.NoError(t, err)
	assert.Equal(t, byte(markerScan), segs[len(segs)-1].marker)

	out, err := encodeJPEGSegments(segs)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func dirtyPNG(t *testing.T) []byte {
	return samplePNG(t,
		pngChunk{typ: "tEXt", data: []byte("Author\x00Jane")},
		pngChunk{typ: "iTXt", data: []byte("Software\x00\x00\x00en\x00\x00GIMP 2.10")},
		pngChunk{typ: "tIME", data: []byte{0x07, 0xE8, 1, 2, 3, 4, 5}},
	)
}

func TestPNG_GetMeta(t *testing.T) {
	path := writeFile(t, "pic.png", dirtyPNG(t))
	p, err := NewPNG(path, core.Options{})
	require.NoError(t, err)

	meta, err := p.GetMeta()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Author":       "Jane",
		"Software":     "GIMP 2.10",
		"LastModified": "2024-01-02 03:04:05",
	}, meta)
}

func TestPNG_RemoveAll(t *testing.T) {
	path := writeFile(t, "pic.png", dirtyPNG(t))
	p, err := NewPNG(path, core.Options{})
	require.NoError(t, err)
	require.NoError(t, p.RemoveAll())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(out, []byte("Jane")))

	// The decoder verifies every chunk CRC.
	got, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, sampleImage().Bounds(), got.Bounds())

	again, err := NewPNG(path, core.Options{})
	require.NoError(t, err)
	clean, err := again.IsClean()
	require.NoError(t, err)
	assert.True(t, clean)
}

func TestPNG_Truncated(t *testing.T) {
	data := samplePNG(t)
	path := writeFile(t, "pic.png", data[:len(data)-6])
	_, err := NewPNG(path, core.Options{})
	assert.True(t, core.IsKind(err, core.KindDecode))
}
