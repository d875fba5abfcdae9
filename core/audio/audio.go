// Package audio strips tags from MP3 and FLAC files.
package audio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dhowden/tag"
)

// maxRawValue bounds how much of an unrecognised tag value is displayed.
const maxRawValue = 256

// Raw frame IDs already shown through the common accessors.
var commonRaw = map[string]bool{
	"TIT2": true, "TPE1": true, "TALB": true, "TPE2": true, "TCOM": true,
	"TCON": true, "COMM": true, "TYER": true, "TDRC": true, "TRCK": true,
	"TPOS": true, "USLT": true, "APIC": true,
	"title": true, "artist": true, "album": true, "albumartist": true,
	"composer": true, "genre": true, "comment": true, "date": true,
	"year": true, "tracknumber": true, "tracktotal": true, "totaltracks": true,
	"discnumber": true, "disctotal": true, "totaldiscs": true, "lyrics": true,
	// Reported as Vendor by the FLAC adapter.
	"vendor": true,
}

// readTags lists every tag dhowden/tag finds in r. A file with no tags
// yields an empty map.
func readTags(r io.ReadSeeker) (map[string]string, error) {
	meta := map[string]string{}
	t, err := tag.ReadFrom(r)
	if errors.Is(err, tag.ErrNoTagsFound) {
		return meta, nil
	}
	if err != nil {
		return nil, err
	}

	add := func(key, val string) {
		if val != "" {
			meta[key] = val
		}
	}
	add("Title", t.Title())
	add("Artist", t.Artist())
	add("Album", t.Album())
	add("AlbumArtist", t.AlbumArtist())
	add("Composer", t.Composer())
	add("Genre", t.Genre())
	add("Comment", t.Comment())
	add("Lyrics", t.Lyrics())
	if t.Year() != 0 {
		add("Year", fmt.Sprintf("%d", t.Year()))
	}
	if track, total := t.Track(); track != 0 {
		add("TrackNumber", fraction(track, total))
	}
	if disc, total := t.Disc(); disc != 0 {
		add("DiscNumber", fraction(disc, total))
	}
	if p := t.Picture(); p != nil {
		add("Picture", fmt.Sprintf("%s (%d bytes)", p.MIMEType, len(p.Data)))
	}

	for k, v := range t.Raw() {
		if v == nil || commonRaw[k] || commonRaw[strings.ToLower(k)] {
			continue
		}
		add(k, rawString(v))
	}
	return meta, nil
}

func fraction(n, total int) string {
	if total != 0 {
		return fmt.Sprintf("%d/%d", n, total)
	}
	return fmt.Sprintf("%d", n)
}

func rawString(v interface{}) string {
	var s string
	switch vt := v.(type) {
	case string:
		s = vt
	case []string:
		s = strings.Join(vt, "; ")
	case int:
		s = fmt.Sprintf("%d", vt)
	case *tag.Picture:
		s = fmt.Sprintf("%s (%d bytes)", vt.MIMEType, len(vt.Data))
	case *tag.Comm:
		s = vt.Text
	default:
		b, err := json.Marshal(v)
		if err != nil {
			s = fmt.Sprintf("%v", v)
		} else {
			s = string(b)
		}
	}
	if len(s) > maxRawValue {
		s = s[:maxRawValue] + "…"
	}
	return s
}
