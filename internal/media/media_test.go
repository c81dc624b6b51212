package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func solid(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func encoded(t *testing.T, img image.Image, format string) []byte {
	t.Helper()
	var buf bytes.Buffer
	switch format {
	case "png":
		require.NoError(t, png.Encode(&buf, img))
	case "jpeg":
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	}
	return buf.Bytes()
}

func decodedSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "png", format)
	return cfg.Width, cfg.Height
}

func TestNormalizeFitsLongerSide(t *testing.T) {
	n := NewNormalizer()
	cases := []struct {
		name   string
		w, h   int
		format string
		wantW  int
		wantH  int
	}{
		{"wide upscale", 100, 50, "png", 512, 256},
		{"tall downscale", 600, 1200, "jpeg", 256, 512},
		{"square", 300, 300, "png", 512, 512},
		{"already fitting", 512, 100, "png", 512, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := n.Normalize(context.Background(), encoded(t, solid(tc.w, tc.h), tc.format))
			require.NoError(t, err)
			w, h := decodedSize(t, out)
			assert.Equal(t, tc.wantW, w)
			assert.Equal(t, tc.wantH, h)
			assert.LessOrEqual(t, len(out), MaxStickerBytes)
		})
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	n := NewNormalizer()
	_, err := n.Normalize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = n.Normalize(context.Background(), []byte("definitely not an image"))
	assert.Error(t, err)
}

type fakeSource struct {
	body string
	err  error
	got  string
}

func (f *fakeSource) File(file *tele.File) (io.ReadCloser, error) {
	f.got = file.FileID
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

func TestFetch(t *testing.T) {
	src := &fakeSource{body: "abc"}
	data, err := NewTelegramFetcher(src, 0).Fetch(context.Background(), "file-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)
	assert.Equal(t, "file-1", src.got)
}

func TestFetchLimits(t *testing.T) {
	_, err := NewTelegramFetcher(&fakeSource{body: "abcdef"}, 3).Fetch(context.Background(), "f")
	assert.ErrorIs(t, err, ErrTooLarge)

	boom := errors.New("telegram: file is too big (400)")
	_, err = NewTelegramFetcher(&fakeSource{err: boom}, 0).Fetch(context.Background(), "f")
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewTelegramFetcher(&fakeSource{body: "x"}, 0).Fetch(ctx, "f")
	assert.ErrorIs(t, err, context.Canceled)
}
