package audio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/mat-surgery/core"
)

// mpegFrames stands in for the audio payload; it is never decoded.
var mpegFrames = append([]byte{0xFF, 0xFB, 0x90, 0x64}, bytes.Repeat([]byte{0x55}, 413)...)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func id3v1Block(title, artist string) []byte {
	b := make([]byte, id3v1Size)
	copy(b, "TAG")
	copy(b[3:33], title)
	copy(b[33:63], artist)
	b[127] = 0xFF
	return b
}

func sampleMP3(t *testing.T, v1 bool) []byte {
	t.Helper()
	tag := id3v2.NewEmptyTag()
	tag.SetTitle("Song")
	tag.SetArtist("Jane")
	var buf bytes.Buffer
	_, err := tag.WriteTo(&buf)
	require.NoError(t, err)
	buf.Write(mpegFrames)
	if v1 {
		buf.Write(id3v1Block("Song", "Jane"))
	}
	return buf.Bytes()
}

func TestMP3_GetMeta(t *testing.T) {
	path := writeFile(t, "song.mp3", sampleMP3(t, false))
	m, err := NewMP3(path, core.Options{})
	require.NoError(t, err)

	meta, err := m.GetMeta()
	require.NoError(t, err)
	assert.Equal(t, "Song", meta["Title"])
	assert.Equal(t, "Jane", meta["Artist"])

	clean, err := m.IsClean()
	require.NoError(t, err)
	assert.False(t, clean)
}

func TestMP3_RemoveAllLeavesOnlyAudio(t *testing.T) {
	path := writeFile(t, "song.mp3", sampleMP3(t, true))
	m, err := NewMP3(path, core.Options{})
	require.NoError(t, err)
	require.NoError(t, m.RemoveAll())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, mpegFrames, out)

	clean, err := m.IsClean()
	require.NoError(t, err)
	assert.True(t, clean)
	meta, err := m.GetMeta()
	require.NoError(t, err)
	assert.Empty(t, meta)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*"))
	require.NoError(t, err)
	assert.Equal(t, []string{path}, leftovers)
}

func TestMP3_Backup(t *testing.T) {
	data := sampleMP3(t, true)
	path := writeFile(t, "song.mp3", data)
	m, err := NewMP3(path, core.Options{Backup: true})
	require.NoError(t, err)
	require.NoError(t, m.RemoveAll())

	orig, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, orig)

	out, err := os.ReadFile(path + core.Postfix)
	require.NoError(t, err)
	assert.Equal(t, mpegFrames, out)
}

func TestMP3_OnlyID3v1IsDirty(t *testing.T) {
	data := append(append([]byte{}, mpegFrames...), id3v1Block("Song", "Jane")...)
	path := writeFile(t, "song.mp3", data)
	m, err := NewMP3(path, core.Options{})
	require.NoError(t, err)

	clean, err := m.IsClean()
	require.NoError(t, err)
	assert.False(t, clean)
}

func vorbisComment(vendor string, comments ...string) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian
	binary.Write(&buf, le, uint32(len(vendor)))
	buf.WriteString(vendor)
	binary.Write(&buf, le, uint32(len(comments)))
	for _, c := range comments {
		binary.Write(&buf, le, uint32(len(c)))
		buf.WriteString(c)
	}
	return buf.Bytes()
}

func pictureBlock(mime string, data []byte) []byte {
	var buf bytes.Buffer
	be := binary.BigEndian
	binary.Write(&buf, be, uint32(3)) // front cover
	binary.Write(&buf, be, uint32(len(mime)))
	buf.WriteString(mime)
	binary.Write(&buf, be, uint32(0))
	for i := 0; i < 4; i++ {
		binary.Write(&buf, be, uint32(0))
	}
	binary.Write(&buf, be, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

var flacFrames = append([]byte{0xFF, 0xF8, 0x69, 0x08}, bytes.Repeat([]byte{0x11}, 64)...)

func sampleFLAC(meta bool) []byte {
	blocks := []flacBlock{{blockType: blockStreamInfo, data: make([]byte, 34)}}
	if meta {
		blocks = append(blocks,
			flacBlock{blockType: blockVorbisComment, data: vorbisComment("reference libFLAC 1.3.2", "TITLE=Song", "ARTIST=Jane")},
			flacBlock{blockType: blockPicture, data: pictureBlock("image/jpeg", []byte{0xFF, 0xD8, 0xFF, 0xD9})},
		)
	}
	blocks = append(blocks, flacBlock{blockType: 1, data: make([]byte, 16)})
	return encodeFLAC(blocks, flacFrames)
}

func TestFLAC_GetMeta(t *testing.T) {
	path := writeFile(t, "song.flac", sampleFLAC(true))
	f, err := NewFLAC(path, core.Options{})
	require.NoError(t, err)

	meta, err := f.GetMeta()
	require.NoError(t, err)
	assert.Equal(t, "Song", meta["Title"])
	assert.Equal(t, "Jane", meta["Artist"])
	assert.Equal(t, "reference libFLAC 1.3.2", meta["Vendor"])
	assert.Equal(t, "image/jpeg (4 bytes)", meta["Picture"])
	assert.NotContains(t, meta, "vendor")
}

func TestFLAC_RemoveAll(t *testing.T) {
	path := writeFile(t, "song.flac", sampleFLAC(true))
	f, err := NewFLAC(path, core.Options{})
	require.NoError(t, err)
	require.NoError(t, f.RemoveAll())

	clean, err := f.IsClean()
	require.NoError(t, err)
	assert.True(t, clean, "same instance reflects the stripped file")
	meta, err := f.GetMeta()
	require.NoError(t, err)
	assert.Empty(t, meta)

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleFLAC(false), out)

	again, err := NewFLAC(path, core.Options{})
	require.NoError(t, err)
	clean, err = again.IsClean()
	require.NoError(t, err)
	assert.True(t, clean)
}

func TestFLAC_RejectsGarbage(t *testing.T) {
	path := writeFile(t, "song.flac", []byte("fLaC\x80\x00"))
	_, err := NewFLAC(path, core.Options{})
	assert.True(t, core.IsKind(err, core.KindDecode))
}
