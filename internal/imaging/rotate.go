package imaging

import "image"

// Rotate rotates an image clockwise by 0, 90, 180 or 270 degrees.
// Other angles return the image unchanged.
func Rotate(img image.Image, angle int) image.Image {
	angle = ((angle % 360) + 360) % 360
	if angle == 0 {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var dst *image.RGBA
	switch angle {
	case 90:
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.Set(h-1-y, x, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	case 180:
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.Set(w-1-x, h-1-y, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	case 270:
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.Set(y, w-1-x, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	default:
		return img
	}
	return dst
}

// MapBBoxBack remaps a bounding box [x1, y1, x2, y2] detected in an image
// rotated clockwise by angle back to the original image's coordinate space.
// width and height are the dimensions of the ORIGINAL (unrotated) image.
func MapBBoxBack(bbox []float64, angle, width, height int) []float64 {
	if len(bbox) != 4 {
		return bbox
	}
	x1, y1, x2, y2 := bbox[0], bbox[1], bbox[2], bbox[3]
	w, h := float64(width), float64(height)

	angle = ((angle % 360) + 360) % 360
	switch angle {
	case 90:
		// Rotated pixel (x', y') came from original (y', h-1-x').
		return []float64{y1, h - 1 - x2, y2, h - 1 - x1}
	case 180:
		return []float64{w - 1 - x2, h - 1 - y2, w - 1 - x1, h - 1 - y1}
	case 270:
		// Rotated pixel (x', y') came from original (w-1-y', x').
		return []float64{w - 1 - y2, x1, w - 1 - y1, x2}
	default:
		return []float64{x1, y1, x2, y2}
	}
}

// ClipBBox clamps a bounding box to the image bounds.
func ClipBBox(bbox []float64, width, height int) []float64 {
	if len(bbox) != 4 {
		return bbox
	}
	return []float64{
		clamp(bbox[0], 0, float64(width-1)),
		clamp(bbox[1], 0, float64(height-1)),
		clamp(bbox[2], 0, float64(width-1)),
		clamp(bbox[3], 0, float64(height-1)),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
