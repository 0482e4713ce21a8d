package scanning

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Fitz implements TextExtractor with MuPDF through go-fitz.
type Fitz struct {
	maxPages int
}

// NewFitz creates a Fitz extractor. maxPages limits how many pages are read;
// zero reads them all.
func NewFitz(maxPages int) *Fitz {
	return &Fitz{maxPages: maxPages}
}

// ExtractText reads the text of each page of a PDF held in memory.
func (f *Fitz) ExtractText(ctx context.Context, data []byte) string {
	if len(data) == 0 {
		return ""
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		slog.Warn("Failed to open document", "file_size", len(data), "error", err)
		return ""
	}
	defer doc.Close()

	count := doc.NumPage()
	if f.maxPages > 0 && count > f.maxPages {
		count = f.maxPages
	}

	pages := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			slog.Warn("Text extraction cancelled", "page", i+1, "error", err)
			return ""
		}
		text, err := doc.Text(i)
		if err != nil {
			slog.Warn("Failed to extract page text", "page", i+1, "error", err)
			continue
		}
		pages = append(pages, text)
	}

	return joinPages(pages)
}

// joinPages lowercases the page texts and joins the non-blank ones with a space.
func joinPages(pages []string) string {
	kept := make([]string, 0, len(pages))
	for _, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		kept = append(kept, page)
	}
	return strings.ToLower(strings.Join(kept, " "))
}
