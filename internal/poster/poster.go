package poster

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/mozillazg/go-unidecode"
	"github.com/spf13/afero"
)

var (
	ErrNotDataURI = errors.New("not a base64 data URI")
	unsafeChars   = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// EncodeDataURI embeds raw image bytes as data:<mime>;base64,<payload>.
// The MIME type is sniffed from the content, not the source URL.
func EncodeDataURI(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	mime := mimetype.Detect(data).String()
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsDataURI reports whether ref is an inline poster rather than a file path.
func IsDataURI(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}

func DecodeDataURI(uri string) (string, []byte, error) {
	if !IsDataURI(uri) {
		return "", nil, ErrNotDataURI
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return "", nil, ErrNotDataURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode poster payload: %w", err)
	}
	mime := strings.TrimSuffix(header, ";base64")
	if mime == "" {
		mime = "application/octet-stream"
	}
	return mime, data, nil
}

// SafeName turns a title into an ASCII file stem.
func SafeName(title string) string {
	name := unsafeChars.ReplaceAllString(unidecode.Unidecode(strings.TrimSpace(title)), "_")
	name = strings.Trim(name, "_.")
	if name == "" {
		return "poster"
	}
	return name
}

func extensionFor(mime string) string {
	if m := mimetype.Lookup(mime); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	}
	return ".bin"
}

// Saver writes decoded posters below Dir.
type Saver struct {
	Fs  afero.Fs
	Dir string
}

func NewSaver(fs afero.Fs, dir string) *Saver {
	return &Saver{Fs: fs, Dir: dir}
}

// Save writes a data URI poster to <Dir>/<safe title>.<ext> and returns the path.
func (s *Saver) Save(title, dataURI string) (string, error) {
	mime, data, err := DecodeDataURI(dataURI)
	if err != nil {
		return "", err
	}
	if err := s.Fs.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create poster dir: %w", err)
	}
	path := filepath.Join(s.Dir, SafeName(title)+extensionFor(mime))
	if err := afero.WriteFile(s.Fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write poster: %w", err)
	}
	return path, nil
}

// Inline returns a data URI for a stored poster reference, reading file paths from fs.
// An empty or unreadable reference yields "".
func Inline(fs afero.Fs, ref string) string {
	if ref == "" || IsDataURI(ref) {
		return ref
	}
	data, err := afero.ReadFile(fs, ref)
	if err != nil {
		return ""
	}
	return EncodeDataURI(data)
}
