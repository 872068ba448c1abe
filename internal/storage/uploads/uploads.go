package uploads

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const sniffLen = 3072

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
)

// Store writes uploaded files to a local directory that is served under PublicPrefix.
type Store struct {
	dir      string
	maxBytes int64
}

const PublicPrefix = "/uploads/"

func NewStore(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads dir: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

func (s *Store) Dir() string { return s.dir }

// SaveImage stores an image under a collision-free name and returns its public path.
// The type is sniffed from the content, the client-supplied name is only kept as a suffix.
func (s *Store) SaveImage(filename string, r io.Reader) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]

	if !isImage(mimetype.Detect(head)) {
		return "", ErrUnsupportedType
	}

	name := uuid.NewString() + "-" + sanitize(filename)
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	src := io.MultiReader(bytes.NewReader(head), r)
	if s.maxBytes > 0 {
		src = io.LimitReader(src, s.maxBytes+1)
	}

	written, err := io.Copy(f, src)
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		os.Remove(f.Name())
		return "", ErrTooLarge
	}

	return PublicPrefix + name, nil
}

func isImage(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}

func sanitize(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "upload"
	}
	return strings.ReplaceAll(base, " ", "_")
}
