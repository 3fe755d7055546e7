package vision

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/kirsrus/gauge-reader/pkg/vision/visiontest"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name       string
		content    []byte
		wantErr    bool
		wantWidth  int
		wantHeight int
		wantScale  float64
	}{
		{
			name:       "png манометра",
			content:    visiontest.PNG(visiontest.Default(0).Render()),
			wantWidth:  240,
			wantHeight: 240,
			wantScale:  1,
		},
		{
			name:       "уменьшение большого кадра",
			content:    visiontest.PNG(image.NewGray(image.Rect(0, 0, 800, 600))),
			wantWidth:  400,
			wantHeight: 300,
			wantScale:  0.5,
		},
		{name: "текст вместо изображения", content: []byte("<html><body>401</body></html>"), wantErr: true},
		{name: "пусто", content: nil, wantErr: true},
		{name: "обрезанный png", content: visiontest.PNG(visiontest.Default(0).Render())[:100], wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Decode(tt.content, DefaultParams())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if frame.Width != tt.wantWidth || frame.Height != tt.wantHeight {
				t.Errorf("Decode() размер %dx%d, want %dx%d", frame.Width, frame.Height, tt.wantWidth, tt.wantHeight)
			}
			if math.Abs(frame.Scale-tt.wantScale) > 1e-9 {
				t.Errorf("Decode() Scale = %v, want %v", frame.Scale, tt.wantScale)
			}
		})
	}
}

func TestFrame_EdgeCount(t *testing.T) {
	if n := NewFrame(visiontest.Blank(120, false), DefaultParams()).EdgeCount(); n != 0 {
		t.Errorf("пустой кадр: EdgeCount() = %d, want 0", n)
	}
	if n := NewFrame(visiontest.Default(90).Render(), DefaultParams()).EdgeCount(); n == 0 {
		t.Error("манометр: EdgeCount() = 0")
	}
}

func TestNewFrame_Luminance(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	frame := NewFrame(img, Params{BlurSigma: -1})
	for i, v := range frame.pix {
		if math.Abs(v-255) > 1e-6 {
			t.Fatalf("pix[%d] = %v, want 255", i, v)
		}
	}
}
