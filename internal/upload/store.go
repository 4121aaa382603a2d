// Package upload implements the file storage collaborator: uploaded bytes
// land in a local directory under a generated name, and the rest of the
// system only ever carries the returned reference.
package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrDisallowedType is returned for file extensions outside the allow-list.
	ErrDisallowedType = errors.New("disallowed file type")
	// ErrEmptyFilename is returned when no usable filename was provided.
	ErrEmptyFilename = errors.New("empty filename")
)

// allowedExtensions mirrors the media types the chat client understands.
var allowedExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "webp": {},
	"mp4": {}, "avi": {}, "mov": {}, "mkv": {},
	"mp3": {}, "wav": {}, "ogg": {},
	"txt": {}, "pdf": {}, "doc": {}, "docx": {}, "zip": {}, "rar": {},
}

// FileRef identifies a stored upload.
type FileRef struct {
	ID   string `json:"id"`
	Name string `json:"name"` // original filename
	URL  string `json:"url"`
}

// Store writes uploads into a directory.
type Store struct {
	dir     string
	baseURL string
}

// NewStore creates the upload directory if needed.
func NewStore(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Save stores the content under a fresh uuid-based name, keeping only the
// extension from the original filename.
func (s *Store) Save(r io.Reader, filename string) (FileRef, error) {
	ext, err := checkExtension(filename)
	if err != nil {
		return FileRef{}, err
	}

	id := uuid.New().String()
	stored := id + "." + ext
	path := filepath.Join(s.dir, stored)

	f, err := os.Create(path)
	if err != nil {
		return FileRef{}, fmt.Errorf("create upload: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return FileRef{}, fmt.Errorf("write upload: %w", err)
	}

	return FileRef{
		ID:   stored,
		Name: filepath.Base(filename),
		URL:  s.baseURL + "/" + stored,
	}, nil
}

// Dir returns the directory uploads are stored in.
func (s *Store) Dir() string {
	return s.dir
}

func checkExtension(filename string) (string, error) {
	base := filepath.Base(filename)
	if base == "" || base == "." {
		return "", ErrEmptyFilename
	}
	idx := strings.LastIndexByte(base, '.')
	if idx < 0 || idx == len(base)-1 {
		return "", ErrDisallowedType
	}
	ext := strings.ToLower(base[idx+1:])
	if _, ok := allowedExtensions[ext]; !ok {
		return "", ErrDisallowedType
	}
	return ext, nil
}
