package vision

import (
	"bytes"
	"image"
	_ "image/gif"  // декодер GIF
	_ "image/jpeg" // декодер JPEG
	_ "image/png"  // декодер PNG
	"math"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/juju/errors"
)

// Frame кадр в оттенках серого (яркость 0..255), уменьшенный и размытый.
// Создаётся через Decode или NewFrame и после этого не изменяется
type Frame struct {
	Width  int
	Height int
	// Коэффициент перевода координат исходного изображения в координаты кадра
	Scale float64

	pix []float64

	edgeThreshold    float64
	minEdgeMagnitude float64

	once  sync.Once
	edges []edgePoint
}

// Точка границы с градиентом яркости
type edgePoint struct {
	x, y   int
	gx, gy float64
	mag    float64
}

// Decode декодирует снимок content в кадр
func Decode(content []byte, params Params) (*Frame, error) {
	if len(content) == 0 {
		return nil, errors.New("пустой снимок")
	}
	mime := mimetype.Detect(content).String()
	if !strings.HasPrefix(mime, "image/") {
		return nil, errors.Errorf("снимок не является изображением (%s)", mime)
	}
	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, errors.Annotatef(err, "ошибка декодирования изображения %s", mime)
	}
	return NewFrame(img, params), nil
}

// NewFrame кадр из изображения img
func NewFrame(img image.Image, params Params) *Frame {
	params = params.withDefaults()
	b := img.Bounds()
	sw, sh := b.Dx(), b.Dy()

	scale := 1.0
	if longest := maxInt(sw, sh); longest > params.MaxDimension {
		scale = float64(params.MaxDimension) / float64(longest)
	}
	w := maxInt(1, int(math.Round(float64(sw)*scale)))
	h := maxInt(1, int(math.Round(float64(sh)*scale)))

	// Уменьшение усреднением попавших в пиксель кадра точек
	sum := make([]float64, w*h)
	cnt := make([]float64, w*h)
	lum := luminance(img)
	for y := 0; y < sh; y++ {
		fy := minInt(int(float64(y)*scale), h-1)
		for x := 0; x < sw; x++ {
			fx := minInt(int(float64(x)*scale), w-1)
			sum[fy*w+fx] += lum(b.Min.X+x, b.Min.Y+y)
			cnt[fy*w+fx]++
		}
	}
	for i := range sum {
		if cnt[i] > 0 {
			sum[i] /= cnt[i]
		}
	}

	return &Frame{
		Width:            w,
		Height:           h,
		Scale:            scale,
		pix:              gaussianBlur(sum, w, h, params.BlurSigma),
		edgeThreshold:    params.EdgeThreshold,
		minEdgeMagnitude: params.MinEdgeMagnitude,
	}
}

// Функция яркости точки изображения. Для JPEG берётся канал Y без преобразования цвета
func luminance(img image.Image) func(x, y int) float64 {
	switch src := img.(type) {
	case *image.Gray:
		return func(x, y int) float64 {
			return float64(src.Pix[src.PixOffset(x, y)])
		}
	case *image.YCbCr:
		return func(x, y int) float64 {
			return float64(src.Y[src.YOffset(x, y)])
		}
	}
	return func(x, y int) float64 {
		r, g, b, _ := img.At(x, y).RGBA()
		return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257
	}
}

// Разделяемое гауссово размытие с повтором крайних пикселей
func gaussianBlur(src []float64, w, h int, sigma float64) []float64 {
	if sigma <= 0 {
		return src
	}
	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)
	var norm float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+radius] = v
		norm += v
	}
	for i := range kernel {
		kernel[i] /= norm
	}

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				xx := clampInt(x+k, 0, w-1)
				acc += src[y*w+xx] * kernel[k+radius]
			}
			tmp[y*w+x] = acc
		}
	}
	dst := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				yy := clampInt(y+k, 0, h-1)
				acc += tmp[yy*w+x] * kernel[k+radius]
			}
			dst[y*w+x] = acc
		}
	}
	return dst
}

// Точки границ кадра. Вычисляются один раз при первом обращении
func (m *Frame) points() []edgePoint {
	m.once.Do(m.detectEdges)
	return m.edges
}

// EdgeCount количество точек границ кадра
func (m *Frame) EdgeCount() int {
	return len(m.points())
}

// Оператор Собеля, подавление немаксимумов и порог по величине градиента
func (m *Frame) detectEdges() {
	w, h := m.Width, m.Height
	m.edges = make([]edgePoint, 0)
	if w < 3 || h < 3 {
		return
	}

	gx := make([]float64, w*h)
	gy := make([]float64, w*h)
	mag := make([]float64, w*h)
	var maxMag float64
	p := m.pix
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			sx := (p[i-w+1] + 2*p[i+1] + p[i+w+1]) - (p[i-w-1] + 2*p[i-1] + p[i+w-1])
			sy := (p[i+w-1] + 2*p[i+w] + p[i+w+1]) - (p[i-w-1] + 2*p[i-w] + p[i-w+1])
			gx[i], gy[i] = sx, sy
			mag[i] = math.Hypot(sx, sy)
			if mag[i] > maxMag {
				maxMag = mag[i]
			}
		}
	}

	threshold := math.Max(m.edgeThreshold*maxMag, m.minEdgeMagnitude)
	const tan22 = 0.41421356
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			if mag[i] < threshold {
				continue
			}
			ax, ay := math.Abs(gx[i]), math.Abs(gy[i])
			var n1, n2 int
			switch {
			case ay <= ax*tan22:
				n1, n2 = i-1, i+1
			case ax <= ay*tan22:
				n1, n2 = i-w, i+w
			case gx[i]*gy[i] > 0:
				n1, n2 = i-w-1, i+w+1
			default:
				n1, n2 = i-w+1, i+w-1
			}
			if mag[i] > mag[n1] && mag[i] >= mag[n2] {
				m.edges = append(m.edges, edgePoint{x: x, y: y, gx: gx[i], gy: gy[i], mag: mag[i]})
			}
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
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
