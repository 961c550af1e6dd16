package parsing

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// sniffLen is how many leading bytes http.DetectContentType looks at.
const sniffLen = 512

var documentTypes = map[string]string{
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".html": "text/html",
	".htm":  "text/html",
	".json": "application/json",
	".xml":  "application/xml",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// Info is what the upload preflight learned about a file.
type Info struct {
	MimeType string
	Size     int64
	Pages    int
}

// DetectContentType returns the media type of a file, without parameters.
// The extension wins when it is known; otherwise the leading bytes decide.
func DetectContentType(filename string, head []byte) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := documentTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return stripParams(t)
	}
	return stripParams(http.DetectContentType(head))
}

// Inspect examines the file stored at path that was uploaded as filename.
// PDFs are parsed and rejected with ErrUnreadablePDF when broken.
func Inspect(path, filename string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	head = head[:n]

	info := &Info{
		MimeType: DetectContentType(filename, head),
		Size:     st.Size(),
	}

	if IsPDF(filename, head) {
		info.MimeType = "application/pdf"
		if info.Pages, err = CheckPDF(path); err != nil {
			return nil, err
		}
	}

	return info, nil
}

func stripParams(t string) string {
	mediaType, _, err := mime.ParseMediaType(t)
	if err != nil {
		return t
	}
	return mediaType
}
