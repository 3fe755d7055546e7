package tool

import "math"

// Допуск сравнения углов в градусах
const DegreesEpsilon = 1e-9

// NormalizeDegrees приводит угол a в градусах к диапазону [0, 360)
func NormalizeDegrees(a float64) float64 {
	m := math.Mod(a, 360)
	if m < 0 {
		m += 360
	}
	if m >= 360-DegreesEpsilon {
		m = 0
	}
	return m
}

// AngleDiff наименьшая разница между углами a и b, [0, 180]
func AngleDiff(a, b float64) float64 {
	d := NormalizeDegrees(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// RoundTo округляет v до precision знаков после запятой
func RoundTo(v float64, precision int) float64 {
	k := math.Pow(10, float64(precision))
	return math.Round(v*k) / k
}
