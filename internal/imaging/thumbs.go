package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

const thumbJPEGQuality = 95

// Thumbnail crops the face region out of an image, resizes it to
// size x size and returns JPEG bytes. A degenerate crop falls back to the
// center region of the image so a thumbnail is always produced.
func Thumbnail(img image.Image, bbox []float64, size int) ([]byte, error) {
	src := toRGBA(img)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	x1, y1, x2, y2 := 0, 0, w, h
	if len(bbox) == 4 {
		x1 = clampInt(int(bbox[0]), 0, w-1)
		y1 = clampInt(int(bbox[1]), 0, h-1)
		x2 = clampInt(int(bbox[2]), 0, w-1)
		y2 = clampInt(int(bbox[3]), 0, h-1)
	}
	if x2 <= x1 || y2 <= y1 {
		// Degenerate crop, fall back to the center region.
		x1, y1, x2, y2 = w/4, h/4, 3*w/4, 3*h/4
	}

	crop := src.SubImage(image.Rect(x1, y1, x2, y2))
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), crop, crop.Bounds(), draw.Over, nil)

	return EncodeJPEG(dst, thumbJPEGQuality)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
