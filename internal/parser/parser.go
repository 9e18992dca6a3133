package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgallion1/docfill/internal/doctree"
	"github.com/fumiama/go-docx"
)

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".docx": true,
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// InputFormatError reports bytes that are not a readable DOCX package.
type InputFormatError struct {
	Err error
}

func (e *InputFormatError) Error() string {
	return fmt.Sprintf("invalid docx: %v", e.Err)
}

func (e *InputFormatError) Unwrap() error { return e.Err }

// File is a parsed DOCX package. Document is the editable model; Bytes
// writes any edits made to it back into a new package.
type File struct {
	Document *doctree.Document

	raw   []byte
	parts []*part // word/document.xml first, then headers and footers
}

// Parse reads a DOCX package. data is retained and must not be modified
// while the File is in use.
func Parse(data []byte) (*File, error) {
	if len(data) == 0 {
		return nil, &InputFormatError{Err: fmt.Errorf("empty file")}
	}
	rd := bytes.NewReader(data)
	zr, err := zip.NewReader(rd, int64(len(data)))
	if err != nil {
		return nil, &InputFormatError{Err: err}
	}
	docEntry := findEntry(zr, "word/document.xml")
	if docEntry == nil {
		return nil, &InputFormatError{Err: fmt.Errorf("missing word/document.xml")}
	}

	doc, err := docx.Parse(rd, int64(len(data)))
	if err != nil {
		return nil, &InputFormatError{Err: fmt.Errorf("parse body: %w", err)}
	}
	body, err := loadBodyPart(docEntry)
	if err != nil {
		return nil, &InputFormatError{Err: fmt.Errorf("parse %s: %w", docEntry.Name, err)}
	}

	f := &File{
		Document: &doctree.Document{},
		raw:      data,
		parts:    []*part{body},
	}
	f.loadBody(doc, body)

	for _, zf := range sortedParts(zr) {
		kind := doctree.RegionHeader
		if strings.HasPrefix(zf.Name, "word/footer") {
			kind = doctree.RegionFooter
		}
		p, err := loadPart(zf, kind)
		if err != nil {
			return nil, &InputFormatError{Err: fmt.Errorf("parse %s: %w", zf.Name, err)}
		}
		f.parts = append(f.parts, p)
		if kind == doctree.RegionFooter {
			f.Document.Footers = append(f.Document.Footers, p.region)
		} else {
			f.Document.Headers = append(f.Document.Headers, p.region)
		}
	}
	return f, nil
}

// Changed reports whether any run text differs from the parsed package.
func (f *File) Changed() bool {
	return len(f.changedParts()) > 0
}

// Bytes serialises the document. Only the XML parts holding edited runs
// are rewritten, and only at the edited w:t elements; every other entry is
// copied as is. An unedited document returns a copy of the original bytes.
func (f *File) Bytes() ([]byte, error) {
	changed := f.changedParts()
	if len(changed) == 0 {
		return bytes.Clone(f.raw), nil
	}

	replace := make(map[string][]byte, len(changed))
	for _, p := range changed {
		replace[p.name] = p.render()
	}
	out, err := rewriteZip(f.raw, replace)
	if err != nil {
		return nil, fmt.Errorf("rewrite parts: %w", err)
	}
	return out, nil
}

func (f *File) changedParts() []*part {
	var out []*part
	for _, p := range f.parts {
		if p.changed() {
			out = append(out, p)
		}
	}
	return out
}

func findEntry(zr *zip.Reader, name string) *zip.File {
	for _, zf := range zr.File {
		if zf.Name == name {
			return zf
		}
	}
	return nil
}

// sortedParts returns header parts then footer parts, each sorted by name.
func sortedParts(zr *zip.Reader) []*zip.File {
	var headers, footers []*zip.File
	for _, zf := range zr.File {
		if !strings.HasSuffix(zf.Name, ".xml") {
			continue
		}
		switch {
		case strings.HasPrefix(zf.Name, "word/header"):
			headers = append(headers, zf)
		case strings.HasPrefix(zf.Name, "word/footer"):
			footers = append(footers, zf)
		}
	}
	byName := func(s []*zip.File) {
		sort.Slice(s, func(i, j int) bool { return s[i].Name < s[j].Name })
	}
	byName(headers)
	byName(footers)
	return append(headers, footers...)
}

// rewriteZip copies every entry of src, substituting the named entries.
func rewriteZip(src []byte, replace map[string][]byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, zf := range zr.File {
		data, ok := replace[zf.Name]
		if !ok {
			if err := zw.Copy(zf); err != nil {
				return nil, err
			}
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     zf.Name,
			Method:   zip.Deflate,
			Modified: zf.Modified,
		})
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
