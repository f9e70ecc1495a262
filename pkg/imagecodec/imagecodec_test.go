package imagecodec

import (
	"strings"
	"testing"

	"github.com/bmharper/cimg/v2"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	src := cimg.NewImage(32, 24, cimg.PixelFormatRGB)
	for i := range src.Pixels {
		src.Pixels[i] = byte(i * 7)
	}
	enc, err := EncodeBase64JPEG(src, 90)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(enc, "data:image/jpeg;base64,"))

	// with the data URI prefix
	img, err := DecodeBase64(enc)
	require.NoError(t, err)
	require.Equal(t, 32, img.Width)
	require.Equal(t, 24, img.Height)
	require.Equal(t, 3, img.NChan())

	// bare base64, no prefix
	bare := strings.TrimPrefix(enc, "data:image/jpeg;base64,")
	img, err = DecodeBase64(bare)
	require.NoError(t, err)
	require.Equal(t, 32, img.Width)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := DecodeBase64("not base64 at all!!!")
	require.Error(t, err)

	// valid base64, but not an image
	_, err = DecodeBase64("aGVsbG8gd29ybGQ=")
	require.Error(t, err)
}
