package images

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// PhotoWidth is the width uploaded photos are scaled to. Height follows
// proportionally.
const PhotoWidth = 800

// Filename derives a random photo filename from the upload's mimetype, e.g.
// "image/jpeg" -> "<uuid>.jpeg". Non-image mimetypes are rejected.
func Filename(mimetype string) (string, error) {
	ext, ok := strings.CutPrefix(mimetype, "image/")
	if !ok || ext == "" {
		return "", fmt.Errorf("that filetype isn't allowed: %s", mimetype)
	}
	return fmt.Sprintf("%s.%s", uuid.New().String(), ext), nil
}

// Resize decodes the image and scales it to PhotoWidth with proportional
// height. It returns the scaled image and the decoded format name.
func Resize(r io.Reader) (image.Image, string, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	height := bounds.Dy() * PhotoWidth / bounds.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, PhotoWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst, format, nil
}

// Encode writes the image in the given format. Anything that is not png or
// gif is written as jpeg.
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "gif":
		return gif.Encode(w, img, nil)
	default:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 85})
	}
}
