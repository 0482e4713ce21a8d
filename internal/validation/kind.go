package validation

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Kind is the coarse type of an uploaded artifact.
type Kind int

const (
	KindUnknown Kind = iota
	KindDocument
	KindUnsupportedImage
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindUnsupportedImage:
		return "unsupported-image"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// SniffLen is how many leading bytes Classify looks at when the name is not
// conclusive.
const SniffLen = 1024

// minSniffLen is the shortest buffer worth sniffing.
const minSniffLen = 4

const documentExtension = "pdf"

var imageExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"gif":  {},
	"bmp":  {},
	"webp": {},
	"svg":  {},
	"heic": {},
	"tiff": {},
}

var signatures = []struct {
	prefix []byte
	kind   Kind
}{
	{[]byte("%PDF"), KindDocument},
	{[]byte{0xFF, 0xD8, 0xFF}, KindUnsupportedImage},
	{[]byte("\x89PNG\r\n\x1a\n"), KindUnsupportedImage},
	{[]byte("GIF87a"), KindUnsupportedImage},
	{[]byte("GIF89a"), KindUnsupportedImage},
	{[]byte("BM"), KindUnsupportedImage},
}

// Classify decides the artifact kind from its file name and, when the name
// says nothing, from its leading bytes. The extension always wins over the
// content.
func Classify(name string, leading []byte) Kind {
	if !utf8.ValidString(name) {
		return KindUnknown
	}
	sniffable := len(leading) >= minSniffLen

	ext := normalizeExt(filepath.Ext(name))
	if _, ok := imageExtensions[ext]; ok {
		return KindUnsupportedImage
	}
	if ext == documentExtension {
		return KindDocument
	}

	if sniffable {
		return sniff(leading)
	}
	return KindOther
}

// LeadingBytes returns at most SniffLen bytes from the start of data.
func LeadingBytes(data []byte) []byte {
	if len(data) > SniffLen {
		return data[:SniffLen]
	}
	return data
}

func sniff(data []byte) Kind {
	for _, sig := range signatures {
		if bytes.HasPrefix(data, sig.prefix) {
			return sig.kind
		}
	}
	if isHEICFormat(data) || isWebPFormat(data) {
		return KindUnsupportedImage
	}
	return KindOther
}

// isHEICFormat checks for an ISO BMFF ftyp box carrying a HEIC/HEIF brand.
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isWebPFormat(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

// normalizeExt lowercases and trims the dot from a file extension.
func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
