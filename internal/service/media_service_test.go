package service

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestDescribeImageReadsDimensions(t *testing.T) {
	asset, err := describe(pngBytes(t, 1080, 1350), MediaUpload{Width: 1, Height: 1, DurationSeconds: 4})
	require.NoError(t, err)

	assert.Equal(t, models.MediaTypeImage, asset.MediaType)
	assert.Equal(t, "image/png", asset.FileType)
	assert.Equal(t, 1080, asset.Width)
	assert.Equal(t, 1350, asset.Height)
	assert.Zero(t, asset.DurationSeconds)
}

func TestDescribeVideoKeepsClientMetadata(t *testing.T) {
	// ftyp box of an mp4 file
	mp4 := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0x00, 0x00, 0x00, 0x00, 'i', 's', 'o', 'm', 'm', 'p', '4', '2'}

	asset, err := describe(mp4, MediaUpload{Width: 1080, Height: 1920, DurationSeconds: 12.5})
	require.NoError(t, err)

	assert.Equal(t, models.MediaTypeVideo, asset.MediaType)
	assert.Equal(t, 1920, asset.Height)
	assert.Equal(t, 12.5, asset.DurationSeconds)
}

func TestDescribeRejectsUnsupportedType(t *testing.T) {
	_, err := describe([]byte("%PDF-1.4 not media"), MediaUpload{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = describe([]byte("plain text"), MediaUpload{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
