package vision

import (
	"math"
	"testing"

	"github.com/kirsrus/gauge-reader/model"
	"github.com/kirsrus/gauge-reader/pkg/scale"
	"github.com/kirsrus/gauge-reader/pkg/vision/visiontest"

	"github.com/juju/errors"
)

// Полный проход снимок -> значение на синтетическом манометре 0-3 бар
func TestRoundTrip(t *testing.T) {
	cal := model.Calibration{MinValue: 0, MaxValue: 3, SweepStart: 225, SweepExtent: 270}
	tolerance := 0.02 * (cal.MaxValue - cal.MinValue)

	gaugeLocator := newGaugeLocator(t)
	needleLocator := newNeedleLocator(t)
	for _, angle := range []float64{225, 250, 300, 0, 45, 90, 135} {
		frame, err := Decode(visiontest.PNG(visiontest.Default(angle).Render()), DefaultParams())
		if err != nil {
			t.Fatal(errors.ErrorStack(err))
		}
		circle, _, err := gaugeLocator.Locate(frame)
		if err != nil {
			t.Fatalf("угол %v: %s", angle, errors.ErrorStack(err))
		}
		needle, _, err := needleLocator.Locate(frame, circle)
		if err != nil {
			t.Fatalf("угол %v: %s", angle, errors.ErrorStack(err))
		}
		got := scale.Map(ResolveAngle(circle, needle), cal)
		want := scale.Map(angle, cal)
		if math.Abs(got-want) > tolerance {
			t.Errorf("угол %v: значение %.3f, want %.3f ± %.3f", angle, got, want, tolerance)
		}
	}
}
