package regions

import (
	"image"
	"sort"

	"subextract/internal/imageproc"
)

// Region is a cropped candidate caption area.
type Region struct {
	Image     image.Image
	Timestamp float64
	Box       image.Rectangle
}

// Options tunes the detection heuristics. Zero values take the defaults.
type Options struct {
	MinWidth      int
	MinHeight     int
	LineTolerance int
	Padding       int
	BlockSize     int
	C             float64
}

// DefaultOptions returns the stock heuristic thresholds.
func DefaultOptions() Options {
	return Options{
		MinWidth:      20,
		MinHeight:     8,
		LineTolerance: 10,
		Padding:       10,
		BlockSize:     11,
		C:             2,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MinWidth <= 0 {
		o.MinWidth = def.MinWidth
	}
	if o.MinHeight <= 0 {
		o.MinHeight = def.MinHeight
	}
	if o.LineTolerance <= 0 {
		o.LineTolerance = def.LineTolerance
	}
	if o.Padding < 0 {
		o.Padding = 0
	}
	if o.BlockSize <= 0 {
		o.BlockSize = def.BlockSize
	}
	if o.C == 0 {
		o.C = def.C
	}
	return o
}

const (
	maxWidthRatio    = 0.9
	maxHeightRatio   = 0.2
	captionBandStart = 0.6
	fallbackBand     = 0.8
)

// Detect returns the caption regions found in frame, top to bottom. It always
// returns at least one region for a non-empty frame.
func Detect(frame image.Image, timestamp float64, opts Options) []Region {
	opts = opts.withDefaults()
	gray := imageproc.ToGray(frame)
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	binary := imageproc.AdaptiveThreshold(gray, opts.BlockSize, opts.C, true)
	var boxes []image.Rectangle
	for _, box := range components(binary) {
		bw, bh := box.Dx(), box.Dy()
		if bw <= opts.MinWidth || float64(bw) >= maxWidthRatio*float64(w) {
			continue
		}
		if bh <= opts.MinHeight || float64(bh) >= maxHeightRatio*float64(h) {
			continue
		}
		if float64(box.Min.Y) <= captionBandStart*float64(h) {
			continue
		}
		boxes = append(boxes, box)
	}

	origin := frame.Bounds().Min
	if len(boxes) == 0 {
		band := image.Rect(0, int(float64(h)*fallbackBand), w, h)
		return []Region{crop(frame, origin, band, timestamp)}
	}

	frameRect := image.Rect(0, 0, w, h)
	lines := groupLines(boxes, opts.LineTolerance)
	regions := make([]Region, 0, len(lines))
	for _, line := range lines {
		padded := image.Rect(
			line.Min.X-opts.Padding, line.Min.Y-opts.Padding,
			line.Max.X+opts.Padding, line.Max.Y+opts.Padding,
		).Intersect(frameRect)
		regions = append(regions, crop(frame, origin, padded, timestamp))
	}
	return regions
}

func crop(frame image.Image, origin image.Point, box image.Rectangle, timestamp float64) Region {
	return Region{
		Image:     imageproc.Crop(frame, box.Add(origin)),
		Timestamp: timestamp,
		Box:       box,
	}
}

// groupLines merges boxes whose vertical centres lie within tolerance of the
// first box of the current line.
func groupLines(boxes []image.Rectangle, tolerance int) []image.Rectangle {
	sorted := append([]image.Rectangle(nil), boxes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return centerY(sorted[i]) < centerY(sorted[j])
	})

	var lines []image.Rectangle
	current := sorted[0]
	anchor := centerY(sorted[0])
	for _, box := range sorted[1:] {
		if centerY(box)-anchor < float64(tolerance) {
			current = current.Union(box)
			continue
		}
		lines = append(lines, current)
		current = box
		anchor = centerY(box)
	}
	return append(lines, current)
}

func centerY(r image.Rectangle) float64 {
	return float64(r.Min.Y+r.Max.Y) / 2
}
