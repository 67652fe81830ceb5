package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/studychat-server/internal/store"
)

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("file too large")

// Storage writes uploaded attachments to a local directory that is served under a public prefix.
type Storage struct {
	dir      string
	prefix   string
	maxBytes int64
	now      func() time.Time
}

// NewStorage creates dir if needed. prefix is the URL path files are served from, e.g. /uploads.
func NewStorage(dir, prefix string, maxBytes int64) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Storage{
		dir:      dir,
		prefix:   "/" + strings.Trim(prefix, "/"),
		maxBytes: maxBytes,
		now:      time.Now,
	}, nil
}

// Dir returns the directory files are stored in.
func (s *Storage) Dir() string {
	return s.dir
}

// Prefix returns the public URL prefix.
func (s *Storage) Prefix() string {
	return s.prefix
}

// Save copies src into a new file named pdf-<unix millis>-<random><ext>.
// originalName is kept as the attachment's display name.
func (s *Storage) Save(originalName string, src io.Reader) (store.Attachment, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	stored := fmt.Sprintf("pdf-%d-%s%s", s.now().UnixMilli(), uuid.NewString()[:8], ext)
	full := filepath.Join(s.dir, stored)

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return store.Attachment{}, fmt.Errorf("create file: %w", err)
	}

	reader := src
	if s.maxBytes > 0 {
		reader = io.LimitReader(src, s.maxBytes+1)
	}
	n, err := io.Copy(f, reader)
	closeErr := f.Close()
	if err == nil && s.maxBytes > 0 && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(full)
		return store.Attachment{}, fmt.Errorf("write file: %w", err)
	}

	return store.Attachment{
		Name: filepath.Base(originalName),
		Path: path.Join(s.prefix, stored),
	}, nil
}

// Remove deletes a previously saved attachment. Unknown paths are ignored.
func (s *Storage) Remove(att store.Attachment) error {
	name := path.Base(att.Path)
	if name == "." || name == "/" || !strings.HasPrefix(att.Path, s.prefix+"/") {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
