package core

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FormatID enumerates every recognised format.
type FormatID string

const (
	FmtTorrent FormatID = "torrent"
	FmtPDF     FormatID = "pdf"

	FmtJPEG FormatID = "jpeg"
	FmtPNG  FormatID = "png"

	FmtMP3  FormatID = "mp3"
	FmtFLAC FormatID = "flac"

	FmtUnknown FormatID = "unknown"
)

// extMap maps lowercase extensions to format IDs.
var extMap = map[string]FormatID{
	".torrent": FmtTorrent,
	".pdf":     FmtPDF,
	".jpg":     FmtJPEG,
	".jpeg":    FmtJPEG,
	".png":     FmtPNG,
	".mp3":     FmtMP3,
	".flac":    FmtFLAC,
}

// DetectFormat returns the FormatID for the given file, first by reading
// magic bytes and falling back to extension.
func DetectFormat(path string) (FormatID, error) {
	f, err := os.Open(path)
	if err != nil {
		return FmtUnknown, err
	}
	defer f.Close()

	buf := make([]byte, 64)
	n, err := io.ReadFull(f, buf)
	if err != nil && n == 0 {
		return FmtUnknown, err
	}
	buf = buf[:n]

	if id := detectMagic(buf); id != FmtUnknown {
		return id, nil
	}

	// Fallback to extension
	if id, ok := extMap[strings.ToLower(filepath.Ext(path))]; ok {
		return id, nil
	}
	return FmtUnknown, nil
}

// torrentKeys are dictionary keys a metainfo file starts with once sorted.
var torrentKeys = [][]byte{
	[]byte("8:announce"),
	[]byte("13:announce-list"),
	[]byte("7:comment"),
	[]byte("10:created by"),
	[]byte("13:creation date"),
	[]byte("8:encoding"),
	[]byte("4:info"),
}

func detectMagic(b []byte) FormatID {
	if len(b) < 4 {
		return FmtUnknown
	}
	switch {
	// PDF: %PDF
	case bytes.HasPrefix(b, []byte("%PDF")):
		return FmtPDF
	// JPEG: FF D8 FF
	case b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return FmtJPEG
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	case bytes.HasPrefix(b, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return FmtPNG
	// MP3: ID3 tag or FF Ex sync
	case bytes.HasPrefix(b, []byte("ID3")):
		return FmtMP3
	case b[0] == 0xFF && (b[1]&0xE0 == 0xE0):
		return FmtMP3
	// FLAC: fLaC
	case bytes.HasPrefix(b, []byte("fLaC")):
		return FmtFLAC
	// Torrent: a bencoded dictionary whose first key is a metainfo key
	case b[0] == 'd':
		for _, k := range torrentKeys {
			if bytes.HasPrefix(b[1:], k) {
				return FmtTorrent
			}
		}
	}
	return FmtUnknown
}

// MediaTypeFor returns the broad media category for a format.
func MediaTypeFor(id FormatID) string {
	switch id {
	case FmtJPEG, FmtPNG:
		return "image"
	case FmtMP3, FmtFLAC:
		return "audio"
	case FmtPDF:
		return "document"
	case FmtTorrent:
		return "torrent"
	default:
		return "unknown"
	}
}
