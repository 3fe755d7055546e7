package vision

import (
	"math"

	"github.com/kirsrus/gauge-reader/model"
	"github.com/kirsrus/gauge-reader/pkg/tool"
)

// ResolveAngle угол стрелки needle в градусах по часовой стрелке от 12 часов, [0, 360).
// Концом стрелки считается дальний от центра circle конец отрезка
func ResolveAngle(circle model.Circle, needle model.LineSegment) float64 {
	tx, ty := needle.X2, needle.Y2
	if math.Hypot(needle.X1-circle.X, needle.Y1-circle.Y) > math.Hypot(needle.X2-circle.X, needle.Y2-circle.Y) {
		tx, ty = needle.X1, needle.Y1
	}
	// Ось y изображения направлена вниз
	deg := math.Atan2(tx-circle.X, circle.Y-ty) * 180 / math.Pi
	return tool.NormalizeDegrees(deg)
}
