// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging normalises uploaded cover images: EXIF orientation is
// applied, metadata is dropped by re-encoding and oversized images are
// scaled down.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/olegiv/bkconstruct/internal/model"
)

// ErrUnsupportedFormat is returned for data that is not a JPEG, PNG, GIF or WebP image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Result is a normalised image ready for storage.
type Result struct {
	Data     []byte
	MimeType string
	Ext      string
	Width    int
	Height   int
}

// Normalizer re-encodes images within a bounding box.
type Normalizer struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// NewNormalizer returns a Normalizer for cover images.
func NewNormalizer() *Normalizer {
	return &Normalizer{MaxWidth: 2400, MaxHeight: 2400, Quality: 88}
}

// Normalize decodes r, applies its EXIF orientation, scales it down to fit
// the bounding box and re-encodes it without metadata. GIFs are re-encoded
// as their first frame; WebP is re-encoded as JPEG.
func (n *Normalizer) Normalize(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	format := detectFormat(data)
	if format == "" {
		return nil, ErrUnsupportedFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	if format == "jpeg" {
		img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))
	}

	b := img.Bounds()
	if (n.MaxWidth > 0 && b.Dx() > n.MaxWidth) || (n.MaxHeight > 0 && b.Dy() > n.MaxHeight) {
		img = imaging.Fit(img, n.MaxWidth, n.MaxHeight, imaging.Lanczos)
	}

	if format == "webp" {
		format = "jpeg"
	}
	out, err := encode(img, format, n.Quality)
	if err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	b = img.Bounds()
	return &Result{
		Data:     out,
		MimeType: formatMimeTypes[format],
		Ext:      formatExtensions[format],
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

var formatMimeTypes = map[string]string{
	"jpeg": model.MimeTypeJPEG,
	"png":  model.MimeTypePNG,
	"gif":  model.MimeTypeGIF,
}

var formatExtensions = map[string]string{
	"jpeg": "jpg",
	"png":  "png",
	"gif":  "gif",
}

// readExifOrientation reads the EXIF orientation tag from image data.
// Returns 1 (normal) if orientation cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

// applyOrientation undoes the camera rotation recorded by an EXIF orientation value.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func encode(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// detectFormat sniffs the image format from raw bytes.
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	// TIFF is rejected outright (CVE-2023-36308 in disintegration/imaging).
	if strings.Contains(contentType, "tiff") {
		return ""
	}
	switch contentType {
	case "image/jpeg":
		return "jpeg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	}
	return ""
}
