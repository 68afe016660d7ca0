package analyzer

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

var white = &image.Uniform{C: color.Gray{Y: 255}}

// page returns a black w x h picture with white blocks.
func page(w, h int, blocks ...image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for _, b := range blocks {
		draw.Draw(img, b, white, image.Point{}, draw.Src)
	}
	return img
}

func TestContrastDetect(t *testing.T) {
	tests := []struct {
		name    string
		img     image.Image
		minArea int
		want    []image.Rectangle // expected block, dilation may grow it by a few pixels
	}{
		{
			name: "single block",
			img:  page(200, 200, image.Rect(50, 50, 150, 150)),
			want: []image.Rectangle{image.Rect(50, 50, 150, 150)},
		},
		{
			name: "blocks in scan order",
			img:  page(300, 200, image.Rect(160, 20, 260, 60), image.Rect(20, 120, 120, 180)),
			want: []image.Rectangle{image.Rect(160, 20, 260, 60), image.Rect(20, 120, 120, 180)},
		},
		{
			name: "sub image origin",
			img: page(300, 200, image.Rect(20, 20, 80, 80), image.Rect(200, 120, 280, 180)).
				SubImage(image.Rect(100, 100, 300, 200)),
			want: []image.Rectangle{image.Rect(100, 20, 180, 80)},
		},
		{
			name:    "below min area",
			img:     page(100, 100, image.Rect(40, 40, 43, 43)),
			minArea: 5000,
		},
		{
			name: "blank",
			img:  page(64, 64),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewContrastDetector()
			if tt.minArea > 0 {
				d.MinArea = tt.minArea
			}
			regions, err := d.Detect(tt.img)
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if len(regions) != len(tt.want) {
				t.Fatalf("got %d regions %v, want %d", len(regions), regions, len(tt.want))
			}
			for i, want := range tt.want {
				got := regions[i].Rect
				if !want.In(got) || !got.In(want.Inset(-8)) {
					t.Errorf("region %d = %v, want about %v", i, got, want)
				}
				if c := regions[i].Confidence; c <= 0 || c > 1 {
					t.Errorf("region %d confidence %v", i, c)
				}
			}
		})
	}
}

func TestNewDetector(t *testing.T) {
	for _, variant := range []string{"contrast", ""} {
		if d, err := NewDetector(variant); err != nil || d == nil {
			t.Errorf("NewDetector(%q) = %v, %v", variant, d, err)
		}
	}
	for _, variant := range []string{"ocr", "invalid"} {
		if _, err := NewDetector(variant); err == nil {
			t.Errorf("NewDetector(%q): expected error", variant)
		}
	}
}
