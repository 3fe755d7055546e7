package model

import "math"

// Circle окружность циферблата в пикселях
type Circle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// Scale масштабирование окружности в k раз
func (m Circle) Scale(k float64) Circle {
	return Circle{X: m.X * k, Y: m.Y * k, Radius: m.Radius * k}
}

// Inside окружность целиком помещается в кадр width x height
func (m Circle) Inside(width, height int) bool {
	return m.X-m.Radius >= 0 && m.Y-m.Radius >= 0 &&
		m.X+m.Radius <= float64(width) && m.Y+m.Radius <= float64(height)
}

// LineSegment отрезок (стрелка) в пикселях
type LineSegment struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Length длина отрезка
func (m LineSegment) Length() float64 {
	return math.Hypot(m.X2-m.X1, m.Y2-m.Y1)
}

// Scale масштабирование отрезка в k раз
func (m LineSegment) Scale(k float64) LineSegment {
	return LineSegment{X1: m.X1 * k, Y1: m.Y1 * k, X2: m.X2 * k, Y2: m.Y2 * k}
}
