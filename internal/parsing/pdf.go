package parsing

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadablePDF is returned for files that claim to be PDFs but cannot be parsed.
var ErrUnreadablePDF = errors.New("file is not a readable PDF")

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether the file looks like a PDF by extension or by its
// leading bytes.
func IsPDF(filename string, head []byte) bool {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	return bytes.HasPrefix(head, pdfMagic)
}

// CheckPDF opens the PDF at path and returns its page count. The document
// must have at least one page and its first page must resolve.
func CheckPDF(path string) (pages int, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, fmt.Errorf("%w: %v", ErrUnreadablePDF, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}
	defer f.Close()

	pages = r.NumPage()
	if pages == 0 {
		return 0, fmt.Errorf("%w: document has no pages", ErrUnreadablePDF)
	}
	if r.Page(1).V.IsNull() {
		return 0, fmt.Errorf("%w: first page is missing", ErrUnreadablePDF)
	}

	return pages, nil
}
