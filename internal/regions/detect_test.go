package regions_test

import (
	"image"
	"image/color"
	"testing"

	"subextract/internal/regions"
)

func blankFrame(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 230
	}
	return img
}

// drawOutline draws a two pixel thick dark rectangle outline.
func drawOutline(img *image.Gray, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			edge := x < r.Min.X+2 || x >= r.Max.X-2 || y < r.Min.Y+2 || y >= r.Max.Y-2
			if edge {
				img.SetGray(x, y, color.Gray{Y: 10})
			}
		}
	}
}

func TestDetectMergesBoxesOnOneLine(t *testing.T) {
	frame := blankFrame(200, 100)
	drawOutline(frame, image.Rect(30, 75, 70, 87))
	drawOutline(frame, image.Rect(90, 76, 130, 87))

	got := regions.Detect(frame, 4.0, regions.DefaultOptions())
	if len(got) != 1 {
		t.Fatalf("expected 1 merged region, got %d: %+v", len(got), got)
	}
	want := image.Rect(20, 65, 140, 97)
	if got[0].Box != want {
		t.Fatalf("expected padded union box %v, got %v", want, got[0].Box)
	}
	if got[0].Timestamp != 4.0 {
		t.Fatalf("unexpected timestamp %v", got[0].Timestamp)
	}
	if got[0].Image.Bounds().Dx() != want.Dx() || got[0].Image.Bounds().Dy() != want.Dy() {
		t.Fatalf("crop size %v does not match box %v", got[0].Image.Bounds(), want)
	}
}

func TestDetectSeparatesLines(t *testing.T) {
	frame := blankFrame(200, 120)
	drawOutline(frame, image.Rect(40, 76, 120, 88))
	drawOutline(frame, image.Rect(40, 98, 120, 110))

	got := regions.Detect(frame, 0, regions.DefaultOptions())
	if len(got) != 2 {
		t.Fatalf("expected 2 line regions, got %d: %+v", len(got), got)
	}
	if got[0].Box.Min.Y >= got[1].Box.Min.Y {
		t.Fatalf("expected regions ordered top to bottom: %v, %v", got[0].Box, got[1].Box)
	}
	if got[1].Box.Max.Y != 120 {
		t.Fatalf("expected padding clipped to frame, got %v", got[1].Box)
	}
}

func TestDetectFallsBackToBottomBand(t *testing.T) {
	frame := blankFrame(200, 100)
	got := regions.Detect(frame, 1.5, regions.DefaultOptions())
	if len(got) != 1 {
		t.Fatalf("expected fallback region, got %d", len(got))
	}
	if want := image.Rect(0, 80, 200, 100); got[0].Box != want {
		t.Fatalf("expected fallback box %v, got %v", want, got[0].Box)
	}
}

func TestDetectIgnoresUpperFrameText(t *testing.T) {
	frame := blankFrame(200, 100)
	drawOutline(frame, image.Rect(30, 10, 90, 22))

	got := regions.Detect(frame, 0, regions.DefaultOptions())
	if len(got) != 1 || got[0].Box != image.Rect(0, 80, 200, 100) {
		t.Fatalf("expected only the fallback band, got %+v", got)
	}
}

func TestDetectIgnoresTinyComponents(t *testing.T) {
	frame := blankFrame(200, 100)
	drawOutline(frame, image.Rect(50, 80, 60, 86))

	got := regions.Detect(frame, 0, regions.Options{})
	if len(got) != 1 || got[0].Box != image.Rect(0, 80, 200, 100) {
		t.Fatalf("expected tiny component to be filtered, got %+v", got)
	}
}
