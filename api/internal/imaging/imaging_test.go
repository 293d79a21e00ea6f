package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image, level png.CompressionLevel) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: level}
	require.NoError(t, enc.Encode(&buf, img))
	return buf.Bytes()
}

func TestFingerprintIgnoresContainerBytes(t *testing.T) {
	img := solid(8, 4, color.RGBA{R: 10, G: 200, B: 30, A: 255})
	fast := pngBytes(t, img, png.NoCompression)
	best := pngBytes(t, img, png.BestCompression)
	require.NotEqual(t, fast, best)

	a, err := Capture(fast, "")
	require.NoError(t, err)
	b, err := Capture(best, "image/png")
	require.NoError(t, err)
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.Len(t, Fingerprint(a), 64)
	assert.Equal(t, "image/png", a.MIME)
}

func TestFingerprintChangesWithPixels(t *testing.T) {
	a, err := Capture(pngBytes(t, solid(4, 4, color.White), png.DefaultCompression), "")
	require.NoError(t, err)
	b, err := Capture(pngBytes(t, solid(4, 4, color.Black), png.DefaultCompression), "")
	require.NoError(t, err)
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestCaptureRejectsGarbage(t *testing.T) {
	_, err := Capture(nil, "")
	assert.ErrorIs(t, err, ErrEmptyImage)
	_, err = Capture([]byte("not an image"), "")
	assert.ErrorContains(t, err, "decode image")
}

func TestCombineStacksVertically(t *testing.T) {
	top := pngBytes(t, solid(10, 5, color.Black), png.DefaultCompression)
	var jb bytes.Buffer
	require.NoError(t, jpeg.Encode(&jb, solid(6, 7, color.Black), nil))

	out, err := Combine([][]byte{top, jb.Bytes()})
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
	assert.Equal(t, 12, img.Bounds().Dy())

	// narrower second image is centred on white
	r, g, b, _ := img.At(0, 8).RGBA()
	assert.Equal(t, uint32(0xffff), r&g&b)
}

func TestCombineSingleIsPassThrough(t *testing.T) {
	one := pngBytes(t, solid(2, 2, color.White), png.DefaultCompression)
	out, err := Combine([][]byte{one})
	require.NoError(t, err)
	assert.Equal(t, one, out)
}

func TestSniffMIME(t *testing.T) {
	assert.Equal(t, "image/jpeg", SniffMIME([]byte{0xFF, 0xD8, 0xFF}))
	assert.Equal(t, "image/png", SniffMIME(pngBytes(t, solid(1, 1, color.White), png.DefaultCompression)))
	assert.Equal(t, "image/gif", SniffMIME([]byte("GIF89a....")))
	assert.Equal(t, "image/webp", SniffMIME([]byte("RIFF\x00\x00\x00\x00WEBPVP8 ")))
	assert.Equal(t, "application/octet-stream", SniffMIME([]byte("hello")))
}

func TestDecodeBase64MaybeDataURL(t *testing.T) {
	payload := []byte{1, 2, 3, 250}
	enc := base64.StdEncoding.EncodeToString(payload)

	b, mime, err := DecodeBase64MaybeDataURL("data:image/png;base64," + enc)
	require.NoError(t, err)
	assert.Equal(t, payload, b)
	assert.Equal(t, "image/png", mime)

	b, mime, err = DecodeBase64MaybeDataURL(" " + enc + "\n")
	require.NoError(t, err)
	assert.Equal(t, payload, b)
	assert.Empty(t, mime)

	_, _, err = DecodeBase64MaybeDataURL("%%%")
	assert.Error(t, err)
}
