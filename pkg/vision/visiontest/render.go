// Package visiontest рисует синтетические снимки манометров для тестов
package visiontest

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

// Gauge описание синтетического манометра
type Gauge struct {
	Size int
	// Центр и радиус середины кольца циферблата
	X, Y, Radius float64
	// Полутолщина кольца
	RingHalf float64
	// Радиус оси стрелки
	HubRadius float64
	// Длина стрелки в долях радиуса
	NeedleLength float64
	// Полутолщина стрелки
	NeedleHalf float64
	// Углы стрелок по часовой от 12 часов
	Needles []float64
}

// Default манометр 240x240 с кольцом радиусом 90 и одной стрелкой под углом angle
func Default(angle float64) Gauge {
	return Gauge{
		Size:         240,
		X:            120,
		Y:            120,
		Radius:       90,
		RingHalf:     2,
		HubRadius:    6,
		NeedleLength: 0.8,
		NeedleHalf:   2,
		Needles:      []float64{angle},
	}
}

// Render рисует тёмный манометр на белом фоне
func (m Gauge) Render() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Size, m.Size))
	for y := 0; y < m.Size; y++ {
		for x := 0; x < m.Size; x++ {
			px, py := float64(x), float64(y)
			d := math.Hypot(px-m.X, py-m.Y)
			dark := math.Abs(d-m.Radius) <= m.RingHalf || d <= m.HubRadius
			for _, a := range m.Needles {
				rad := a * math.Pi / 180
				tx := m.X + m.NeedleLength*m.Radius*math.Sin(rad)
				ty := m.Y - m.NeedleLength*m.Radius*math.Cos(rad)
				if segmentDistance(px, py, m.X, m.Y, tx, ty) <= m.NeedleHalf {
					dark = true
				}
			}
			img.SetGray(x, y, shade(dark))
		}
	}
	return img
}

// Blank белый кадр size x size, при bar с горизонтальной чёрной полосой
func Blank(size int, bar bool) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dark := bar && x >= size/6 && x < size*5/6 && y >= size*11/24 && y < size*13/24
			img.SetGray(x, y, shade(dark))
		}
	}
	return img
}

// PNG кодирует изображение в PNG
func PNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func shade(dark bool) color.Gray {
	if dark {
		return color.Gray{Y: 0}
	}
	return color.Gray{Y: 255}
}

func segmentDistance(px, py, x1, y1, x2, y2 float64) float64 {
	vx, vy := x2-x1, y2-y1
	t := ((px-x1)*vx + (py-y1)*vy) / (vx*vx + vy*vy)
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(px-(x1+t*vx), py-(y1+t*vy))
}
