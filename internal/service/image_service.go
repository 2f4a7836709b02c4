package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"amber/internal/config"
	"amber/internal/middleware"
	"amber/internal/models"
	"amber/internal/observability"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultUploadDir       = "uploads"
	DefaultMaxUploadSizeMB = 16
	MaxImageDimension      = 2048
	JPEGQuality            = 85
	WebPQuality            = 80
)

// MaxImagePixels bounds width*height as declared in the image header. It is checked before
// any decoding.
const MaxImagePixels = 40_000_000

// ImageUpload is a file received from a multipart form.
type ImageUpload struct {
	Filename string
	Content  []byte
}

// ImageService validates uploads and stores them under the upload folder.
type ImageService struct {
	dir      string
	maxBytes int64
	prefix   func() (string, error)
}

func NewImageService(cfg *config.Config) *ImageService {
	dir := DefaultUploadDir
	maxMB := DefaultMaxUploadSizeMB
	if cfg != nil {
		if cfg.UploadFolder != "" {
			dir = cfg.UploadFolder
		}
		if cfg.MaxUploadSizeMB > 0 {
			maxMB = cfg.MaxUploadSizeMB
		}
	}
	return &ImageService{
		dir:      dir,
		maxBytes: int64(maxMB) * 1024 * 1024,
		prefix:   randomPrefix,
	}
}

// Dir is the folder stored files live in.
func (s *ImageService) Dir() string { return s.dir }

// MaxBytes is the largest accepted upload.
func (s *ImageService) MaxBytes() int64 { return s.maxBytes }

// Store checks the upload's content, shrinks oversized images and writes the file. It returns
// the stored filename, which is what posts reference.
func (s *ImageService) Store(ctx context.Context, in ImageUpload) (string, error) {
	if len(in.Content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	detected := http.DetectContentType(in.Content)
	format, ok := allowedImageTypes[detected]
	if !ok {
		return "", models.NewValidationError("Invalid image type")
	}

	content, err := shrinkIfOversized(in.Content, format)
	if err != nil {
		return "", err
	}

	prefix, err := s.prefix()
	if err != nil {
		return "", models.NewInternalError(err)
	}
	name := prefix + "_" + withExtension(SanitizeFilename(in.Filename), format)

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), content, 0o600); err != nil {
		return "", models.NewInternalError(err)
	}

	observability.ImagesStored.WithLabelValues(format).Inc()
	middleware.Logger.InfoContext(ctx, "image stored", slog.String("file", name), slog.Int("bytes", len(content)))
	return name, nil
}

// Remove deletes a stored file. Missing files and unsafe names are ignored.
func (s *ImageService) Remove(ctx context.Context, name string) {
	if name == "" || SanitizeFilename(name) != name {
		return
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		middleware.Logger.WarnContext(ctx, "failed to remove image", slog.String("file", name), slog.String("error", err.Error()))
	}
}

// Resolve maps a requested filename onto a stored file. Names that change under sanitization
// never resolve.
func (s *ImageService) Resolve(name string) (string, error) {
	if name == "" || SanitizeFilename(name) != name {
		return "", models.NewNotFoundError("File not found")
	}
	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", models.NewNotFoundError("File not found")
		}
		return "", models.NewInternalError(err)
	}
	if info.IsDir() {
		return "", models.NewNotFoundError("File not found")
	}
	return path, nil
}

var allowedImageTypes = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

var formatExtensions = map[string][]string{
	"jpeg": {".jpg", ".jpeg"},
	"png":  {".png"},
	"gif":  {".gif"},
	"webp": {".webp"},
}

// SanitizeFilename keeps the final path element and only letters, digits, dot, underscore and
// hyphen. Leading dots are dropped. An empty result becomes "upload".
func SanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "upload"
	}
	return out
}

func withExtension(name, format string) string {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range formatExtensions[format] {
		if ext == allowed {
			return name
		}
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + formatExtensions[format][0]
}

func randomPrefix() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// shrinkIfOversized re-encodes images wider or taller than MaxImageDimension. GIFs are kept
// as-is so animations survive. Images declaring more than MaxImagePixels are rejected.
func shrinkIfOversized(content []byte, format string) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, models.NewValidationError("Image dimensions are too large")
	}
	if format == "gif" || (cfg.Width <= MaxImageDimension && cfg.Height <= MaxImageDimension) {
		return content, nil
	}

	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	resized := resizeToFit(decoded, MaxImageDimension, MaxImageDimension)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: JPEGQuality})
	case "png":
		err = png.Encode(&buf, resized)
	case "webp":
		err = webp.Encode(&buf, resized, &webp.Options{Quality: WebPQuality})
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}
