package imaging

import (
	"image"
	"math"
	"strconv"
	"strings"
)

// Preprocess applies a named transform to the whole image. Supported modes:
// "none", "autocontrast" (per-channel linear contrast stretch) and
// "gammaX.Y" (gamma correction via lookup table). Unknown modes return the
// image unchanged.
func Preprocess(img image.Image, mode string) image.Image {
	switch {
	case mode == "" || mode == "none":
		return img
	case mode == "autocontrast":
		return autocontrast(img)
	case strings.HasPrefix(mode, "gamma"):
		g, err := strconv.ParseFloat(strings.TrimPrefix(mode, "gamma"), 64)
		if err != nil || g <= 0 {
			g = 1.5
		}
		return gammaCorrect(img, g)
	default:
		return img
	}
}

// toRGBA copies an image into an RGBA buffer with zero-based bounds.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// autocontrast stretches each channel linearly so its darkest pixel maps to
// 0 and its brightest to 255.
func autocontrast(img image.Image) image.Image {
	src := toRGBA(img)
	b := src.Bounds()

	lo := [3]uint8{255, 255, 255}
	hi := [3]uint8{0, 0, 0}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := src.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				v := src.Pix[i+c]
				if v < lo[c] {
					lo[c] = v
				}
				if v > hi[c] {
					hi[c] = v
				}
			}
		}
	}

	dst := image.NewRGBA(b)
	copy(dst.Pix, src.Pix)
	for c := 0; c < 3; c++ {
		if hi[c] <= lo[c] {
			continue // Flat channel, nothing to stretch
		}
		scale := 255.0 / float64(hi[c]-lo[c])
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				i := dst.PixOffset(x, y)
				dst.Pix[i+c] = uint8(math.Round(float64(dst.Pix[i+c]-lo[c]) * scale))
			}
		}
	}
	return dst
}

// gammaCorrect brightens (g > 1) or darkens (g < 1) the image using a
// per-channel lookup table.
func gammaCorrect(img image.Image, g float64) image.Image {
	inv := 1.0 / math.Max(g, 1e-6)
	var table [256]uint8
	for i := range table {
		table[i] = uint8(math.Round(math.Pow(float64(i)/255.0, inv) * 255.0))
	}

	src := toRGBA(img)
	b := src.Bounds()
	dst := image.NewRGBA(b)
	copy(dst.Pix, src.Pix)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := dst.PixOffset(x, y)
			dst.Pix[i+0] = table[dst.Pix[i+0]]
			dst.Pix[i+1] = table[dst.Pix[i+1]]
			dst.Pix[i+2] = table[dst.Pix[i+2]]
		}
	}
	return dst
}
