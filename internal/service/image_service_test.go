package service

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"amber/internal/config"
	"amber/internal/models"
	"amber/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImageService(t *testing.T, maxMB int) *ImageService {
	t.Helper()
	svc := NewImageService(&config.Config{UploadFolder: t.TempDir(), MaxUploadSizeMB: maxMB})
	svc.prefix = func() (string, error) { return "deadbeef", nil }
	return svc
}

func TestImageService_StoreFormats(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		want     string
	}{
		{"png keeps name", "wallet.png", testutil.TinyPNG(t, 4, 4), "deadbeef_wallet.png"},
		{"jpeg keeps jpeg extension", "photo.JPEG", testutil.TinyJPEG(t, 4, 4), "deadbeef_photo.JPEG"},
		{"extension follows content", "cat.png", testutil.TinyJPEG(t, 4, 4), "deadbeef_cat.jpg"},
		{"gif", "anim.gif", testutil.TinyGIF(t, 4, 4), "deadbeef_anim.gif"},
		{"unsafe name", "../../etc/pass wd.png", testutil.TinyPNG(t, 4, 4), "deadbeef_pass_wd.png"},
		{"missing extension", "noext", testutil.TinyPNG(t, 4, 4), "deadbeef_noext.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newImageService(t, 0)
			name, err := svc.Store(context.Background(), ImageUpload{Filename: tt.filename, Content: tt.content})
			require.NoError(t, err)
			assert.Equal(t, tt.want, name)

			path, err := svc.Resolve(name)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(svc.Dir(), name), path)
		})
	}
}

func TestImageService_RejectsBadUploads(t *testing.T) {
	svc := newImageService(t, 1)
	ctx := context.Background()

	_, err := svc.Store(ctx, ImageUpload{Filename: "x.png"})
	assert.Equal(t, "No file uploaded", assertAppError(t, err, models.CodeValidation).Message)

	_, err = svc.Store(ctx, ImageUpload{Filename: "x.png", Content: []byte("just some text, not an image")})
	assert.Equal(t, "Invalid image type", assertAppError(t, err, models.CodeValidation).Message)

	big := append(testutil.TinyPNG(t, 2, 2), bytes.Repeat([]byte{0}, 1024*1024)...)
	_, err = svc.Store(ctx, ImageUpload{Filename: "x.png", Content: big})
	assert.Equal(t, "File too large (max 1MB)", assertAppError(t, err, models.CodeValidation).Message)

	truncated := testutil.TinyPNG(t, 8, 8)[:20]
	_, err = svc.Store(ctx, ImageUpload{Filename: "x.png", Content: truncated})
	assertAppError(t, err, models.CodeValidation)

	entries, err := os.ReadDir(svc.Dir())
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestImageService_ShrinksOversizedImages(t *testing.T) {
	svc := newImageService(t, 0)

	name, err := svc.Store(context.Background(), ImageUpload{Filename: "wide.png", Content: testutil.TinyPNG(t, MaxImageDimension*2, 10)})
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(svc.Dir(), name))
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, MaxImageDimension, cfg.Width)
	assert.Equal(t, 5, cfg.Height)
}

func TestImageService_RejectsHugeDeclaredDimensions(t *testing.T) {
	svc := newImageService(t, 0)

	bomb := testutil.PNGDeclaring(t, 60000, 60000)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(bomb))
	require.NoError(t, err)
	require.Equal(t, 60000, cfg.Width)

	_, err = svc.Store(context.Background(), ImageUpload{Filename: "bomb.png", Content: bomb})
	assert.Equal(t, "Image dimensions are too large", assertAppError(t, err, models.CodeValidation).Message)

	entries, err := os.ReadDir(svc.Dir())
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestImageService_RemoveAndResolve(t *testing.T) {
	svc := newImageService(t, 0)
	ctx := context.Background()

	name, err := svc.Store(ctx, ImageUpload{Filename: "keys.png", Content: testutil.TinyPNG(t, 2, 2)})
	require.NoError(t, err)

	outside := filepath.Join(filepath.Dir(svc.Dir()), "secret.png")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	for _, bad := range []string{"", "../secret.png", ".hidden", "a/b.png", "missing.png"} {
		_, err := svc.Resolve(bad)
		assertAppError(t, err, models.CodeNotFound)
	}

	svc.Remove(ctx, "../secret.png")
	_, err = os.Stat(outside)
	assert.NoError(t, err, "names that need sanitizing are never removed")

	svc.Remove(ctx, name)
	_, err = svc.Resolve(name)
	assertAppError(t, err, models.CodeNotFound)

	svc.Remove(ctx, name)
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"photo.png":            "photo.png",
		"my photo.png":         "my_photo.png",
		`C:\Users\me\pic.jpg`:  "pic.jpg",
		"../../x.gif":          "x.gif",
		"...":                  "upload",
		"ümlaut.png":           "mlaut.png",
		"":                     "upload",
		"a-b_c.webp":           "a-b_c.webp",
		strings.Repeat("é", 3): "upload",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}
