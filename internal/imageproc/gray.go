package imageproc

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ToGray converts img to an 8-bit luminance image anchored at the origin.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	return fromNRGBA(imaging.Grayscale(img))
}

// Crop returns the portion of img inside rect, re-anchored at the origin.
func Crop(img image.Image, rect image.Rectangle) image.Image {
	return imaging.Crop(img, rect)
}

// Mean returns the average pixel intensity.
func Mean(g *image.Gray) float64 {
	if len(g.Pix) == 0 {
		return 0
	}
	var sum uint64
	b := g.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
		for _, v := range row {
			sum += uint64(v)
		}
	}
	return float64(sum) / float64(b.Dx()*b.Dy())
}

// Invert flips every pixel value.
func Invert(g *image.Gray) *image.Gray {
	out := image.NewGray(g.Bounds())
	for i, v := range g.Pix {
		out.Pix[i] = 255 - v
	}
	return out
}

// gaussianSigma matches the sigma OpenCV derives for a given block size.
func gaussianSigma(block int) float64 {
	return 0.3*(float64(block-1)*0.5-1) + 0.8
}

// LocalMean returns the Gaussian-weighted neighbourhood mean of every pixel.
func LocalMean(g *image.Gray, block int) *image.Gray {
	return fromNRGBA(imaging.Blur(g, gaussianSigma(block)))
}

func fromNRGBA(src *image.NRGBA) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srcRow := src.Pix[y*src.Stride:]
		dstRow := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dstRow[x] = srcRow[x*4]
		}
	}
	return out
}

func clampByte(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
