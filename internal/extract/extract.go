package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"portfolio-backend/internal/shared/storage/object"
)

var (
	// ErrUnsupportedFormat is returned for any file that is neither PDF nor DOCX.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrExtractionFailed wraps parser failures on malformed or corrupted input.
	ErrExtractionFailed = errors.New("text extraction failed")
)

// Format identifies a supported resume container.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// FormatFromFileName derives the format from the file extension, case-insensitively.
func FormatFromFileName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// ContentType is the MIME type stored alongside uploads of this format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

// ExtractedKey is where the derived text of a stored upload is persisted.
func ExtractedKey(fileKey string) string {
	return fileKey + ".extracted.txt"
}

// ExtractText pulls text from a stored object and persists a derived .extracted.txt copy.
// It returns the text and the key of the derived copy.
func ExtractText(ctx context.Context, store object.ObjectStore, fileKey string, format Format) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	body, err := store.Open(ctx, fileKey)
	if err != nil {
		return "", "", fmt.Errorf("extract text key=%s format=%s: %w", fileKey, format, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", "", fmt.Errorf("extract text key=%s format=%s: read: %w", fileKey, format, err)
	}

	text, err := ExtractTextFromBytes(ctx, raw, format)
	if err != nil {
		return "", "", fmt.Errorf("extract text key=%s: %w", fileKey, err)
	}

	extractedKey := ExtractedKey(fileKey)
	if _, err := store.SaveWithKey(ctx, extractedKey, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		return "", "", fmt.Errorf("extract text key=%s: save derived text: %w", fileKey, err)
	}
	return text, extractedKey, nil
}

// ExtractTextFromBytes extracts trimmed plain text from an in-memory payload.
// Documents with no extractable text yield an empty string, not an error.
func ExtractTextFromBytes(ctx context.Context, data []byte, format Format) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch format {
	case FormatPDF:
		text, err = extractPDF(data)
	case FormatDOCX:
		text, err = extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExtractionFailed, format, err)
	}
	return strings.TrimSpace(text), nil
}

// extractPDF concatenates the plain text of every page in order, without separators.
func extractPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some corrupted xref tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() || page.V.Key("Contents").IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(pageText)
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer doc.Close()

	return bodyParagraphs(doc.Editable().GetContent())
}

// bodyParagraphs returns the text of every paragraph that is a direct child of
// w:body, one per line. Table cells and text boxes are skipped.
func bodyParagraphs(documentXML string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(documentXML))

	var (
		stack     []string
		lines     []string
		current   strings.Builder
		inPara    bool
		textBoxes int
	)
	parent := func() string {
		if len(stack) == 0 {
			return ""
		}
		return stack[len(stack)-1]
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			switch {
			case name == "p" && parent() == "body":
				inPara = true
				current.Reset()
			case name == "txbxContent":
				textBoxes++
			case inPara && textBoxes == 0 && parent() == "r":
				switch name {
				case "tab":
					current.WriteByte('\t')
				case "br", "cr":
					current.WriteByte('\n')
				}
			}
			stack = append(stack, name)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			switch t.Name.Local {
			case "txbxContent":
				textBoxes--
			case "p":
				if inPara && parent() == "body" {
					lines = append(lines, current.String())
					inPara = false
				}
			}
		case xml.CharData:
			if inPara && textBoxes == 0 && len(stack) >= 2 &&
				stack[len(stack)-1] == "t" && stack[len(stack)-2] == "r" {
				current.Write(t)
			}
		}
	}

	return strings.Join(lines, "\n"), nil
}
