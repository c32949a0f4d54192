// Package portfolio stores the studio's portfolio images on disk.
package portfolio

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/jaystattoos/studio/internal/models"
)

const (
	// MaxImageSize is the largest accepted upload.
	MaxImageSize = 5 << 20
	// URLPrefix is where uploaded images are served.
	URLPrefix = "/assets/uploads/"
	// FilePrefix starts every stored image name.
	FilePrefix = "portfolio-"
)

var (
	// ErrUnsupportedType is returned for anything but jpeg, jpg, png, gif and webp images.
	ErrUnsupportedType = errors.New("only image files are allowed (jpeg, jpg, png, gif, webp)")
	// ErrTooLarge is returned when an upload exceeds MaxImageSize.
	ErrTooLarge = errors.New("image exceeds the 5MB limit")
	// ErrNotFound is returned when deleting an image that does not exist.
	ErrNotFound = errors.New("image not found")
	// ErrInvalidName is returned for names that are not a plain file name.
	ErrInvalidName = errors.New("invalid image filename")
)

var imageExt = regexp.MustCompile(`(?i)\.(jpe?g|png|gif|webp)$`)

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Store saves, lists and deletes images in one directory.
type Store struct {
	dir  string
	now  func() time.Time
	rand func() int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to name files.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRandom overrides the random suffix source used to name files.
func WithRandom(r func() int) Option {
	return func(s *Store) { s.rand = r }
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("uploads directory not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	s := &Store{
		dir:  dir,
		now:  time.Now,
		rand: func() int { return rand.IntN(1_000_000_000) },
	}
	for _, opt := range opts {
		opt(s)
	}
	slog.Debug("portfolio.NewStore: uploads directory ready", "dir", dir)
	return s, nil
}

// Dir returns the directory images are stored in.
func (s *Store) Dir() string {
	return s.dir
}

// Save validates and stores one upload. contentType may be empty, in which
// case it is sniffed from the first bytes of r.
func (s *Store) Save(r io.Reader, originalName, contentType string) (models.Image, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !imageExt.MatchString(ext) {
		return models.Image{}, ErrUnsupportedType
	}

	br := bufio.NewReaderSize(r, 512)
	if contentType == "" || contentType == "application/octet-stream" {
		head, err := br.Peek(512)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
			return models.Image{}, fmt.Errorf("failed to read upload: %w", err)
		}
		contentType = http.DetectContentType(head)
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err != nil || !allowedMIME[mediaType] {
		return models.Image{}, ErrUnsupportedType
	}

	now := s.now()
	name := fmt.Sprintf("%s%d-%d%s", FilePrefix, now.UnixMilli(), s.rand(), ext)
	path := filepath.Join(s.dir, name)

	pending, err := renameio.NewPendingFile(path, renameio.WithTempDir(s.dir), renameio.WithPermissions(0o644))
	if err != nil {
		return models.Image{}, fmt.Errorf("create pending image file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			slog.Debug("portfolio.Save: cleanup pending file", "error", err)
		}
	}()

	n, err := io.Copy(pending, io.LimitReader(br, MaxImageSize+1))
	if err != nil {
		return models.Image{}, fmt.Errorf("write image data: %w", err)
	}
	if n > MaxImageSize {
		return models.Image{}, ErrTooLarge
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return models.Image{}, fmt.Errorf("atomically replace image file: %w", err)
	}

	slog.Info("portfolio.Save: image stored", "filename", name, "size", n)
	return models.Image{Filename: name, URL: URLPrefix + name, Size: n, UploadedAt: now}, nil
}

// List returns stored images, newest first.
func (s *Store) List() ([]models.Image, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploads directory: %w", err)
	}

	images := []models.Image{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !imageExt.MatchString(name) {
			continue
		}
		info, err := entry.Info()
		if errors.Is(err, fs.ErrNotExist) {
			// Deleted between ReadDir and Info.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", name, err)
		}
		images = append(images, models.Image{
			Filename:   name,
			URL:        URLPrefix + name,
			Size:       info.Size(),
			UploadedAt: info.ModTime(),
		})
	}

	slices.SortFunc(images, func(a, b models.Image) int {
		if c := b.UploadedAt.Compare(a.UploadedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.Filename, a.Filename)
	})
	return images, nil
}

// Delete removes the named image.
func (s *Store) Delete(name string) error {
	if !validName(name) {
		return ErrInvalidName
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	slog.Info("portfolio.Delete: image deleted", "filename", name)
	return nil
}

func validName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return false
	}
	return filepath.Base(name) == name
}
