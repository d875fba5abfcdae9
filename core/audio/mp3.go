package audio

import (
	"bytes"
	"io"
	"os"

	"github.com/bogem/id3v2/v2"
	"go.uber.org/zap"

	"github.com/ankit-chaubey/mat-surgery/core"
)

// MP3Info describes the MP3 adapter.
var MP3Info = core.FormatInfo{
	Name:       "MP3",
	Extensions: []string{".mp3"},
	MediaType:  "audio",
	MIMETypes:  []string{"audio/mpeg"},
	Sensitive:  []string{"ID3v2 frames", "ID3v1"},
	Notes:      "All ID3v2 frames and the trailing ID3v1 block.",
}

const id3v1Size = 128

// MP3 implements core.Stripper for MP3 files.
type MP3 struct {
	path string
	opts core.Options
}

// NewMP3 checks that path is readable and returns its stripper.
func NewMP3(path string, opts core.Options) (*MP3, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, core.IOError(path, "stat", err)
	}
	return &MP3{path: path, opts: opts.WithDefaults(path)}, nil
}

func (m *MP3) GetMeta() (map[string]string, error) {
	f, err := os.Open(m.path)
	if err != nil {
		return nil, core.IOError(m.path, "open", err)
	}
	defer f.Close()

	meta, err := readTags(f)
	if err != nil {
		return nil, core.DecodeError(m.path, "read tags", err)
	}
	return meta, nil
}

func (m *MP3) IsClean() (bool, error) {
	t, err := id3v2.Open(m.path, id3v2.Options{Parse: true})
	if err != nil {
		return false, core.DecodeError(m.path, "read ID3v2", err)
	}
	frames := t.Count()
	t.Close()
	if frames > 0 {
		return false, nil
	}
	v1, err := hasID3v1(m.path)
	if err != nil {
		return false, err
	}
	return !v1, nil
}

// RemoveAll deletes every ID3v2 frame and the ID3v1 block from a copy of the
// file, then commits the copy.
func (m *MP3) RemoveAll() error {
	tmp, err := core.CopyToTemp(m.path)
	if err != nil {
		return err
	}
	if err := stripID3(tmp); err != nil {
		core.Discard(tmp)
		return core.SerializeError(m.path, "strip ID3 tags", err)
	}
	if err := core.SyncFile(tmp); err != nil {
		core.Discard(tmp)
		return err
	}
	out, err := core.Commit(m.path, tmp, m.opts)
	if err != nil {
		return err
	}
	m.opts.Logger.Debug("mp3 stripped", zap.String("output", out))
	return nil
}

func stripID3(path string) error {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	t.DeleteAllFrames()
	// A tag without frames is not written at all.
	if err := t.Save(); err != nil {
		t.Close()
		return err
	}
	if err := t.Close(); err != nil {
		return err
	}

	v1, err := hasID3v1(path)
	if err != nil || !v1 {
		return err
	}
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.Truncate(path, st.Size()-id3v1Size)
}

func hasID3v1(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, core.IOError(path, "open", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return false, core.IOError(path, "stat", err)
	}
	if st.Size() < id3v1Size {
		return false, nil
	}
	head := make([]byte, 3)
	if _, err := f.ReadAt(head, st.Size()-id3v1Size); err != nil && err != io.EOF {
		return false, core.IOError(path, "read ID3v1", err)
	}
	return bytes.Equal(head, []byte("TAG")), nil
}
