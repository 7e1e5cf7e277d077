package imageproc

import (
	"image"
	"math"
)

// Bilateral applies an edge-preserving bilateral filter with the given
// neighbourhood diameter and colour/space sigmas.
func Bilateral(g *image.Gray, diameter int, sigmaColor, sigmaSpace float64) *image.Gray {
	radius := diameter / 2
	if radius < 1 {
		radius = 1
	}
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	var colorWeight [256]float64
	colorCoeff := -0.5 / (sigmaColor * sigmaColor)
	for i := range colorWeight {
		colorWeight[i] = math.Exp(float64(i*i) * colorCoeff)
	}

	type tap struct {
		dx, dy int
		weight float64
	}
	spaceCoeff := -0.5 / (sigmaSpace * sigmaSpace)
	taps := make([]tap, 0, (2*radius+1)*(2*radius+1))
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			dist := float64(dx*dx + dy*dy)
			if math.Sqrt(dist) > float64(radius) {
				continue
			}
			taps = append(taps, tap{dx: dx, dy: dy, weight: math.Exp(dist * spaceCoeff)})
		}
	}

	at := func(x, y int) uint8 {
		x = min(max(x, 0), w-1)
		y = min(max(y, 0), h-1)
		return g.Pix[y*g.Stride+x]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := at(x, y)
			var sum, norm float64
			for _, t := range taps {
				v := at(x+t.dx, y+t.dy)
				diff := int(v) - int(center)
				if diff < 0 {
					diff = -diff
				}
				weight := t.weight * colorWeight[diff]
				sum += weight * float64(v)
				norm += weight
			}
			out.Pix[y*out.Stride+x] = clampByte(sum / norm)
		}
	}
	return out
}

// Dilate grows foreground (255) pixels with a size x size square kernel
// anchored at its centre.
func Dilate(g *image.Gray, size int) *image.Gray {
	if size < 1 {
		size = 1
	}
	anchor := size / 2
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var hi uint8
			for ky := 0; ky < size && hi < 255; ky++ {
				sy := y + ky - anchor
				if sy < 0 || sy >= h {
					continue
				}
				for kx := 0; kx < size; kx++ {
					sx := x + kx - anchor
					if sx < 0 || sx >= w {
						continue
					}
					if v := g.Pix[sy*g.Stride+sx]; v > hi {
						hi = v
					}
				}
			}
			out.Pix[y*out.Stride+x] = hi
		}
	}
	return out
}
