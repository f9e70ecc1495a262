// Package imagecodec converts between the wire representation of images
// (base64 JPEG, optionally wrapped in a data URI) and in-memory RGB rasters.
package imagecodec

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/bmharper/cimg/v2"
)

const jpegPrefix = "data:image/jpeg;base64,"

// DecodeBase64 decodes a base64 JPEG/PNG payload into an RGB image.
// A "data:image/...;base64," prefix, if present, is stripped first.
func DecodeBase64(payload string) (*cimg.Image, error) {
	if i := strings.IndexByte(payload, ','); i != -1 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	img, err := cimg.Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.NChan() != 3 {
		img = img.ToRGB()
	}
	return img, nil
}

// EncodeBase64Raw wraps an already-compressed JPEG byte stream in a data URI.
func EncodeBase64Raw(jpg []byte) string {
	return jpegPrefix + base64.StdEncoding.EncodeToString(jpg)
}

// EncodeBase64JPEG compresses img to JPEG and returns it as a data URI.
func EncodeBase64JPEG(img *cimg.Image, quality int) (string, error) {
	jpg, err := cimg.Compress(img, cimg.MakeCompressParams(cimg.Sampling420, quality, 0))
	if err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	return jpegPrefix + base64.StdEncoding.EncodeToString(jpg), nil
}
