package torrent

// FieldKind identifies a top-level metainfo key.
type FieldKind int

const (
	// Other is any key this adapter does not recognise. It is preserved.
	Other FieldKind = iota
	Announce
	AnnounceList
	Comment
	CreatedBy
	CreationDate
	Encoding
	Info
)

// FieldName is a top-level key: its kind plus the exact key found on the wire.
type FieldName struct {
	Kind FieldKind
	Key  string
}

var wireKinds = map[string]FieldKind{
	"announce":      Announce,
	"announce-list": AnnounceList,
	"comment":       Comment,
	"created by":    CreatedBy,
	"created_by":    CreatedBy,
	"creation date": CreationDate,
	"creation_date": CreationDate,
	"encoding":      Encoding,
	"info":          Info,
}

var displayNames = map[FieldKind]string{
	Announce:     "announce",
	AnnounceList: "announce-list",
	Comment:      "comment",
	CreatedBy:    "created_by",
	CreationDate: "creation_date",
	Encoding:     "encoding",
	Info:         "info",
}

// ParseFieldName classifies a raw dictionary key.
func ParseFieldName(key string) FieldName {
	return FieldName{Kind: wireKinds[key], Key: key}
}

// String returns the display name. Unrecognised keys are shown verbatim.
func (n FieldName) String() string {
	if name, ok := displayNames[n.Kind]; ok {
		return name
	}
	return n.Key
}

// Sensitive reports whether the field can identify the torrent's author.
func (n FieldName) Sensitive() bool {
	switch n.Kind {
	case Comment, CreatedBy, CreationDate, Info:
		return true
	}
	return false
}

// SensitiveFields lists the display names of the fields RemoveAll deletes.
func SensitiveFields() []string {
	return []string{"comment", "created_by", "creation_date", "info"}
}
