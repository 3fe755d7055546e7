// Package scale переводит угол стрелки в значение по шкале и оценивает пороги тревог
package scale

import (
	"github.com/kirsrus/gauge-reader/model"
	"github.com/kirsrus/gauge-reader/pkg/tool"
)

// Offset угловое смещение angle от начала шкалы в пределах [0, SweepExtent].
// Угол за пределами дуги шкалы прижимается к ближайшему её концу
func Offset(angle float64, cal model.Calibration) float64 {
	offset := tool.NormalizeDegrees(angle - cal.SweepStart)
	if offset <= tool.DegreesEpsilon {
		return 0
	}
	if diff := offset - cal.SweepExtent; diff > -tool.DegreesEpsilon && diff < tool.DegreesEpsilon {
		return cal.SweepExtent
	}
	if offset > cal.SweepExtent {
		if offset-cal.SweepExtent <= 360-offset {
			return cal.SweepExtent
		}
		return 0
	}
	return offset
}

// Map значение по шкале для угла стрелки angle
func Map(angle float64, cal model.Calibration) float64 {
	offset := Offset(angle, cal)
	switch offset {
	case 0:
		return cal.MinValue
	case cal.SweepExtent:
		return cal.MaxValue
	}
	return cal.MinValue + offset/cal.SweepExtent*(cal.MaxValue-cal.MinValue)
}

// Evaluate состояние каждого порога: value >= порог. Пороги оцениваются независимо,
// в результате присутствуют только настроенные
func Evaluate(value float64, thresholds model.ThresholdSet) map[string]bool {
	alarms := make(map[string]bool, len(thresholds))
	for _, v := range thresholds {
		alarms[v.Name] = value >= v.Value
	}
	return alarms
}
