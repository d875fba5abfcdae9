// Package torrent strips identifying fields from BitTorrent metainfo files.
//
// A metainfo file is a bencoded dictionary:
//
//	announce, announce-list, comment, created by, creation date, encoding, info
//
// Values are kept as raw bencode so that fields which are not stripped are
// written back byte-for-byte.
package torrent

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/ankit-chaubey/mat-surgery/core"
	"github.com/zeebo/bencode"
	"go.uber.org/zap"
)

// FormatInfo describes the torrent adapter.
var FormatInfo = core.FormatInfo{
	Name:       "Torrent",
	Extensions: []string{".torrent"},
	MediaType:  "torrent",
	MIMETypes:  []string{"application/x-bittorrent"},
	Sensitive:  SensitiveFields(),
	Notes:      "Removing info leaves only tracker data; the file no longer describes content.",
}

// Field is one top-level entry of the metainfo dictionary.
type Field struct {
	Name FieldName
	raw  bencode.RawMessage
}

// Raw returns the bencoded value.
func (f Field) Raw() []byte { return f.raw }

// Value decodes the field as a displayable scalar. Dictionaries, lists,
// binary strings and malformed values yield a KindDecode error.
func (f Field) Value() (string, error) {
	var v interface{}
	if err := bencode.DecodeBytes(f.raw, &v); err != nil {
		return "", core.DecodeError("", fmt.Sprintf("field %q", f.Name), err)
	}
	switch x := v.(type) {
	case string:
		if !utf8.ValidString(x) {
			return "", core.DecodeError("", fmt.Sprintf("field %q holds binary data", f.Name), nil)
		}
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	default:
		return "", core.DecodeError("", fmt.Sprintf("field %q is not a scalar (%T)", f.Name, v), nil)
	}
}

// Stripper implements core.Stripper for .torrent files.
type Stripper struct {
	path   string
	opts   core.Options
	fields []Field
}

// New loads the metainfo dictionary at path.
func New(path string, opts core.Options) (*Stripper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.IOError(path, "read", err)
	}
	fields, err := decodeFields(data)
	if err != nil {
		return nil, core.DecodeError(path, "not a bencoded dictionary", err)
	}
	return &Stripper{path: path, opts: opts.WithDefaults(path), fields: fields}, nil
}

func decodeFields(data []byte) ([]Field, error) {
	var dict map[string]bencode.RawMessage
	if err := bencode.DecodeBytes(data, &dict); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Name: ParseFieldName(k), raw: dict[k]})
	}
	return fields, nil
}

// Fields returns the top-level fields in key order.
func (s *Stripper) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Field looks up a top-level field by kind.
func (s *Stripper) Field(kind FieldKind) (Field, bool) {
	for _, f := range s.fields {
		if f.Name.Kind == kind {
			return f, true
		}
	}
	return Field{}, false
}

func (s *Stripper) IsClean() (bool, error) {
	for _, f := range s.fields {
		if f.Name.Sensitive() {
			return false, nil
		}
	}
	return true, nil
}

// GetMeta never fails on a field value: anything that cannot be decoded is
// reported as core.HarmfulContent.
func (s *Stripper) GetMeta() (map[string]string, error) {
	meta := map[string]string{}
	for _, f := range s.fields {
		if !f.Name.Sensitive() {
			continue
		}
		v, err := f.Value()
		if err != nil {
			s.opts.Logger.Debug("undecodable torrent field",
				zap.String("file", s.path), zap.Stringer("field", f.Name), zap.Error(err))
			v = core.HarmfulContent
		}
		meta[f.Name.String()] = v
	}
	return meta, nil
}

func (s *Stripper) RemoveAll() error {
	kept := make(map[string]bencode.RawMessage)
	var remaining []Field
	for _, f := range s.fields {
		if f.Name.Sensitive() {
			continue
		}
		kept[f.Name.Key] = f.raw
		remaining = append(remaining, f)
	}

	data, err := bencode.EncodeBytes(kept)
	if err != nil {
		return core.SerializeError(s.path, "encode stripped dictionary", err)
	}
	if err := verifyRoundTrip(data, kept); err != nil {
		return core.SerializeError(s.path, "round-trip check", err)
	}

	out, err := core.Finish(s.path, data, s.opts)
	if err != nil {
		return err
	}
	s.fields = remaining
	s.opts.Logger.Debug("torrent stripped", zap.String("file", s.path), zap.String("output", out))
	return nil
}

// verifyRoundTrip re-decodes the encoded output and checks that every kept
// field survived unchanged.
func verifyRoundTrip(data []byte, want map[string]bencode.RawMessage) error {
	var got map[string]bencode.RawMessage
	if err := bencode.DecodeBytes(data, &got); err != nil {
		return err
	}
	if len(got) != len(want) {
		return fmt.Errorf("expected %d fields, re-read %d", len(want), len(got))
	}
	for k, v := range want {
		if !bytes.Equal(got[k], v) {
			return fmt.Errorf("field %q changed during encoding", k)
		}
	}
	return nil
}
