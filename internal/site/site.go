// Package site turns a delimited model reply into the three documents of a
// static website and packages them.
package site

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	IndexFile   = "index.html"
	StyleFile   = "style.css"
	ScriptFile  = "script.js"
	ArchiveFile = "portfolio_website.zip"
)

const (
	htmlToken = "--html--"
	cssToken  = "--css--"
	jsToken   = "--js--"
)

// ErrMalformedOutput matches every *MalformedOutputError.
var ErrMalformedOutput = errors.New("malformed model output")

// MalformedOutputError reports which locator token broke the expected layout.
type MalformedOutputError struct {
	Token  string
	Reason string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output: %s %s", e.Token, e.Reason)
}

func (e *MalformedOutputError) Is(target error) bool {
	return target == ErrMalformedOutput
}

// Document is one named file of the site.
type Document struct {
	Name    string
	Content string
}

// Site holds the three generated documents.
type Site struct {
	HTML string
	CSS  string
	JS   string
}

// Documents returns the files in archive order.
func (s Site) Documents() []Document {
	return []Document{
		{Name: IndexFile, Content: s.HTML},
		{Name: StyleFile, Content: s.CSS},
		{Name: ScriptFile, Content: s.JS},
	}
}

// ContentType returns the MIME type served for a site file name.
func ContentType(name string) string {
	switch name {
	case IndexFile:
		return "text/html; charset=utf-8"
	case StyleFile:
		return "text/css; charset=utf-8"
	case ScriptFile:
		return "text/javascript; charset=utf-8"
	case ArchiveFile:
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

// segment locates one token pair in the raw output.
type segment struct {
	token   string
	open    int // index of the first token
	closing int // index of the second token
}

func (s segment) contentStart() int { return s.open + len(s.token) }
func (s segment) end() int          { return s.closing + len(s.token) }

// Parse extracts the documents from raw model output. Each locator token must
// appear exactly twice, and the html, css and js segments must follow each
// other in that order without overlapping. Content between the two
// occurrences is kept byte for byte.
func Parse(raw string) (Site, error) {
	var segs []segment
	for _, token := range []string{htmlToken, cssToken, jsToken} {
		switch n := strings.Count(raw, token); {
		case n == 0:
			return Site{}, &MalformedOutputError{Token: token, Reason: "is missing"}
		case n == 1:
			return Site{}, &MalformedOutputError{Token: token, Reason: "is not closed"}
		case n > 2:
			return Site{}, &MalformedOutputError{Token: token, Reason: fmt.Sprintf("appears %d times, want 2", n)}
		}
		first := strings.Index(raw, token)
		second := first + len(token) + strings.Index(raw[first+len(token):], token)
		segs = append(segs, segment{token: token, open: first, closing: second})
	}

	for i := 1; i < len(segs); i++ {
		prev, cur := segs[i-1], segs[i]
		if cur.open < prev.end() {
			return Site{}, &MalformedOutputError{
				Token:  cur.token,
				Reason: fmt.Sprintf("segment must start after the %s segment ends", prev.token),
			}
		}
	}

	return Site{
		HTML: raw[segs[0].contentStart():segs[0].closing],
		CSS:  raw[segs[1].contentStart():segs[1].closing],
		JS:   raw[segs[2].contentStart():segs[2].closing],
	}, nil
}

// Archive builds a deflate-compressed zip with the three documents.
func Archive(s Site) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, doc := range s.Documents() {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   doc.Name,
			Method: zip.Deflate,
		})
		if err != nil {
			return nil, fmt.Errorf("zip create %s: %w", doc.Name, err)
		}
		if _, err := w.Write([]byte(doc.Content)); err != nil {
			return nil, fmt.Errorf("zip write %s: %w", doc.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip close: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteDir writes the three documents and the archive into dir, replacing
// files of the same name. It returns the archive path.
func WriteDir(dir string, s Site) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	archive, err := Archive(s)
	if err != nil {
		return "", err
	}
	for _, doc := range s.Documents() {
		if err := os.WriteFile(filepath.Join(dir, doc.Name), []byte(doc.Content), 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", doc.Name, err)
		}
	}
	archivePath := filepath.Join(dir, ArchiveFile)
	if err := os.WriteFile(archivePath, archive, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", ArchiveFile, err)
	}
	return archivePath, nil
}
