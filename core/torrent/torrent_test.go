package torrent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/bencode"

	"github.com/ankit-chaubey/mat-surgery/core"
)

func writeTorrent(t *testing.T, dict map[string]interface{}) string {
	t.Helper()
	data, err := bencode.EncodeBytes(dict)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "sample.torrent")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func fullTorrent() map[string]interface{} {
	return map[string]interface{}{
		"announce":      "http://tracker",
		"announce-list": [][]string{{"http://tracker"}, {"udp://backup:6969"}},
		"comment":       "hello",
		"created by":    "mktorrent 1.1",
		"creation date": int64(1700000000),
		"encoding":      "UTF-8",
		"info": map[string]interface{}{
			"name":         "holiday.mkv",
			"piece length": int64(16384),
			"pieces":       "0123456789abcdefghij",
			"length":       int64(42),
		},
	}
}

func rawOf(t *testing.T, s *Stripper, kind FieldKind) []byte {
	t.Helper()
	f, ok := s.Field(kind)
	require.True(t, ok)
	return f.Raw()
}

func TestParseFieldName(t *testing.T) {
	cases := []struct {
		key       string
		kind      FieldKind
		display   string
		sensitive bool
	}{
		{"comment", Comment, "comment", true},
		{"created by", CreatedBy, "created_by", true},
		{"created_by", CreatedBy, "created_by", true},
		{"creation date", CreationDate, "creation_date", true},
		{"info", Info, "info", true},
		{"announce", Announce, "announce", false},
		{"announce-list", AnnounceList, "announce-list", false},
		{"encoding", Encoding, "encoding", false},
		{"url-list", Other, "url-list", false},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			n := ParseFieldName(tc.key)
			assert.Equal(t, tc.kind, n.Kind)
			assert.Equal(t, tc.display, n.String())
			assert.Equal(t, tc.sensitive, n.Sensitive())
		})
	}
}

func TestGetMeta_FallsBackToSentinel(t *testing.T) {
	s, err := New(writeTorrent(t, fullTorrent()), core.Options{})
	require.NoError(t, err)

	meta, err := s.GetMeta()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"comment":       "hello",
		"created_by":    "mktorrent 1.1",
		"creation_date": "1700000000",
		"info":          core.HarmfulContent,
	}, meta)
}

func TestGetMeta_BinaryValueNeverFails(t *testing.T) {
	s, err := New(writeTorrent(t, map[string]interface{}{
		"announce": "http://tracker",
		"comment":  "\xff\xfe\x00bad",
	}), core.Options{})
	require.NoError(t, err)

	meta, err := s.GetMeta()
	require.NoError(t, err)
	assert.Equal(t, core.HarmfulContent, meta["comment"])
}

func TestFieldValue_NonScalarIsDecodeError(t *testing.T) {
	s, err := New(writeTorrent(t, fullTorrent()), core.Options{})
	require.NoError(t, err)

	f, ok := s.Field(Info)
	require.True(t, ok)
	_, err = f.Value()
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindDecode))
}

func TestIsClean(t *testing.T) {
	s, err := New(writeTorrent(t, fullTorrent()), core.Options{})
	require.NoError(t, err)
	clean, err := s.IsClean()
	require.NoError(t, err)
	assert.False(t, clean)

	s, err = New(writeTorrent(t, map[string]interface{}{
		"announce": "http://tracker",
		"encoding": "UTF-8",
	}), core.Options{})
	require.NoError(t, err)
	clean, err = s.IsClean()
	require.NoError(t, err)
	assert.True(t, clean)
}

func TestRemoveAll_InPlace(t *testing.T) {
	path := writeTorrent(t, fullTorrent())
	before, err := New(path, core.Options{})
	require.NoError(t, err)
	announce := rawOf(t, before, Announce)
	announceList := rawOf(t, before, AnnounceList)
	encoding := rawOf(t, before, Encoding)

	require.NoError(t, before.RemoveAll())
	clean, err := before.IsClean()
	require.NoError(t, err)
	assert.True(t, clean)

	_, err = os.Stat(path + core.Postfix)
	assert.True(t, os.IsNotExist(err), "temporary must be renamed over the original")

	after, err := New(path, core.Options{})
	require.NoError(t, err)
	clean, err = after.IsClean()
	require.NoError(t, err)
	assert.True(t, clean)

	meta, err := after.GetMeta()
	require.NoError(t, err)
	assert.Empty(t, meta)

	assert.Equal(t, announce, rawOf(t, after, Announce))
	assert.Equal(t, announceList, rawOf(t, after, AnnounceList))
	assert.Equal(t, encoding, rawOf(t, after, Encoding))
}

func TestRemoveAll_Backup(t *testing.T) {
	path := writeTorrent(t, fullTorrent())
	original, err := os.ReadFile(path)
	require.NoError(t, err)
	stBefore, err := os.Stat(path)
	require.NoError(t, err)

	s, err := New(path, core.Options{Backup: true})
	require.NoError(t, err)
	require.NoError(t, s.RemoveAll())

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, current)
	stAfter, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, stBefore.ModTime(), stAfter.ModTime())

	cleaned, err := New(path+core.Postfix, core.Options{})
	require.NoError(t, err)
	clean, err := cleaned.IsClean()
	require.NoError(t, err)
	assert.True(t, clean)
}

func TestRemoveAll_Idempotent(t *testing.T) {
	path := writeTorrent(t, fullTorrent())

	s, err := New(path, core.Options{})
	require.NoError(t, err)
	require.NoError(t, s.RemoveAll())
	once, err := os.ReadFile(path)
	require.NoError(t, err)

	s, err = New(path, core.Options{})
	require.NoError(t, err)
	require.NoError(t, s.RemoveAll())
	twice, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestRemoveAll_CommentScenario(t *testing.T) {
	path := writeTorrent(t, map[string]interface{}{
		"comment":  "hello",
		"announce": "http://tracker",
	})
	s, err := New(path, core.Options{})
	require.NoError(t, err)
	require.NoError(t, s.RemoveAll())

	s, err = New(path, core.Options{})
	require.NoError(t, err)
	meta, err := s.GetMeta()
	require.NoError(t, err)
	assert.Empty(t, meta)

	f, ok := s.Field(Announce)
	require.True(t, ok)
	v, err := f.Value()
	require.NoError(t, err)
	assert.Equal(t, "http://tracker", v)
}

func TestNew_RejectsNonDictionary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.torrent")
	require.NoError(t, os.WriteFile(path, []byte("not bencode at all"), 0o644))

	_, err := New(path, core.Options{})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindDecode))
}

func TestFormatInfo(t *testing.T) {
	assert.Equal(t, "Torrent", FormatInfo.Name)
	assert.Equal(t, SensitiveFields(), FormatInfo.Sensitive)
	assert.Equal(t, Info, ParseFieldName("info").Kind)
}
