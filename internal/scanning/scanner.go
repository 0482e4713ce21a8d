package scanning

import "context"

// TextExtractor reads the text layer of a document.
type TextExtractor interface {
	// ExtractText returns the lowercase text of every page joined by a single
	// space. It returns "" when the document cannot be read for any reason.
	ExtractText(ctx context.Context, data []byte) string
}
