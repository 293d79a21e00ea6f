package recognize

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-ocr/api/internal/imaging"
)

type countingEngine struct {
	text map[string]string
	err  error
	n    int
}

func (e *countingEngine) Recognize(_ context.Context, img []byte, _ string) (string, error) {
	e.n++
	if e.err != nil {
		return "", e.err
	}
	return e.text[string(img)], nil
}

func capture(t *testing.T, c color.Color, level png.CompressionLevel) imaging.Captured {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, (&png.Encoder{CompressionLevel: level}).Encode(&buf, img))
	cp, err := imaging.Capture(buf.Bytes(), "image/png")
	require.NoError(t, err)
	return cp
}

func TestOneCallPerDistinctContent(t *testing.T) {
	f1 := capture(t, color.White, png.DefaultCompression)
	f2 := capture(t, color.Black, png.DefaultCompression)
	eng := &countingEngine{text: map[string]string{string(f1.Raw): "one", string(f2.Raw): "two"}}

	var c Cache
	var fresh []bool
	for _, img := range []imaging.Captured{f1, f1, f2, f1} {
		res, err := c.GetOrRecognize(context.Background(), eng, img)
		require.NoError(t, err)
		fresh = append(fresh, res.Fresh)
	}
	// invocations happen at steps 1, 3 and 4
	assert.Equal(t, []bool{true, false, true, true}, fresh)
	assert.Equal(t, 3, eng.n)
	assert.Equal(t, "one", c.Text())
}

func TestRepasteReturnsSameText(t *testing.T) {
	img := capture(t, color.White, png.DefaultCompression)
	eng := &countingEngine{text: map[string]string{string(img.Raw): "What is 2+2?"}}

	var c Cache
	first, err := c.GetOrRecognize(context.Background(), eng, img)
	require.NoError(t, err)
	second, err := c.GetOrRecognize(context.Background(), eng, img)
	require.NoError(t, err)

	assert.Equal(t, 1, eng.n)
	assert.Equal(t, first.Text, second.Text)
	assert.False(t, second.Fresh)
}

func TestSamePixelsDifferentBytesHitCache(t *testing.T) {
	a := capture(t, color.White, png.NoCompression)
	b := capture(t, color.White, png.BestCompression)
	eng := &countingEngine{text: map[string]string{string(a.Raw): "x"}}

	var c Cache
	_, err := c.GetOrRecognize(context.Background(), eng, a)
	require.NoError(t, err)
	res, err := c.GetOrRecognize(context.Background(), eng, b)
	require.NoError(t, err)
	assert.Equal(t, 1, eng.n)
	assert.Equal(t, "x", res.Text)
}

func TestFailureIsCachedAsEmpty(t *testing.T) {
	img := capture(t, color.White, png.DefaultCompression)
	boom := errors.New("quota exceeded")
	eng := &countingEngine{err: boom}

	var c Cache
	c.SetText("old text")
	res, err := c.GetOrRecognize(context.Background(), eng, img)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecognition)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, res.Text)
	assert.Empty(t, c.Text())
	assert.Equal(t, imaging.Fingerprint(img), c.Fingerprint())

	// identical paste is not retried
	res, err = c.GetOrRecognize(context.Background(), eng, img)
	require.NoError(t, err)
	assert.Empty(t, res.Text)
	assert.Equal(t, 1, eng.n)

	// explicit retry
	c.Forget()
	eng.err = nil
	eng.text = map[string]string{string(img.Raw): "recovered"}
	res, err = c.GetOrRecognize(context.Background(), eng, img)
	require.NoError(t, err)
	assert.Equal(t, "recovered", res.Text)
	assert.Equal(t, 2, eng.n)
}

func TestSetTextKeepsFingerprint(t *testing.T) {
	img := capture(t, color.White, png.DefaultCompression)
	eng := &countingEngine{text: map[string]string{string(img.Raw): "a"}}

	var c Cache
	_, err := c.GetOrRecognize(context.Background(), eng, img)
	require.NoError(t, err)
	c.SetText("a (edited)")

	res, err := c.GetOrRecognize(context.Background(), eng, img)
	require.NoError(t, err)
	assert.Equal(t, "a (edited)", res.Text)
	assert.Equal(t, 1, eng.n)
}
