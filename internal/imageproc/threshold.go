package imageproc

import "image"

// AdaptiveThreshold binarizes g against a Gaussian local mean minus c. With
// inverted set, pixels darker than the local threshold become 255 and the
// rest 0; otherwise the polarity is reversed.
func AdaptiveThreshold(g *image.Gray, block int, c float64, inverted bool) *image.Gray {
	if block < 3 {
		block = 3
	}
	if block%2 == 0 {
		block++
	}
	mean := LocalMean(g, block)
	b := g.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := float64(g.Pix[y*g.Stride+x])
			t := float64(mean.Pix[y*mean.Stride+x]) - c
			above := v > t
			if above != inverted {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// OtsuLevel returns the global threshold that maximizes between-class variance.
func OtsuLevel(g *image.Gray) uint8 {
	var hist [256]int
	b := g.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for _, v := range g.Pix[y*g.Stride : y*g.Stride+b.Dx()] {
			hist[v]++
		}
	}
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}

	var sumAll float64
	for i, count := range hist {
		sumAll += float64(i * count)
	}
	var (
		sumBack    float64
		weightBack int
		best       float64
		level      int
	)
	for i, count := range hist {
		weightBack += count
		if weightBack == 0 {
			continue
		}
		weightFore := total - weightBack
		if weightFore == 0 {
			break
		}
		sumBack += float64(i * count)
		meanBack := sumBack / float64(weightBack)
		meanFore := (sumAll - sumBack) / float64(weightFore)
		diff := meanBack - meanFore
		between := float64(weightBack) * float64(weightFore) * diff * diff
		if between > best {
			best = between
			level = i
		}
	}
	return uint8(level)
}

// OtsuThreshold binarizes g at its Otsu level: pixels above it become 255.
func OtsuThreshold(g *image.Gray) *image.Gray {
	level := OtsuLevel(g)
	b := g.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if g.Pix[y*g.Stride+x] > level {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}
