package vision

import (
	"image"
	"io/ioutil"
	"math"
	"math/rand"

	"github.com/kirsrus/gauge-reader/model"
	"github.com/kirsrus/gauge-reader/pkg/tool"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

// Число шагов угла накопителя прямых (1 градус)
const numAngle = 180

// NeedleLocator поиск стрелки вероятностным преобразованием Хафа в кольце вокруг центра
// циферблата. Инициализируется через NewNeedleLocator
type NeedleLocator struct {
	log    *logrus.Entry
	params Params
}

// ConfigNeedleLocator конфигурация NeedleLocator
type ConfigNeedleLocator struct {
	Log    *logrus.Logger
	Params Params
}

// NewNeedleLocator конструктор NeedleLocator
func NewNeedleLocator(config *ConfigNeedleLocator) (*NeedleLocator, error) {
	if config == nil {
		return nil, errors.New("не установлен config")
	}
	if config.Log == nil {
		config.Log = logrus.New()
		config.Log.Out = ioutil.Discard
	}
	params := config.Params.withDefaults()
	if params.HubExclusion >= params.RimExclusion {
		return nil, errors.Errorf("некорректное кольцо поиска стрелки [%v, %v]", params.HubExclusion, params.RimExclusion)
	}
	return &NeedleLocator{
		log: config.Log.WithFields(map[string]interface{}{
			"module": "needle",
			"scope":  "vision",
		}),
		params: params,
	}, nil
}

// Кандидат в стрелки
type needleCandidate struct {
	segment model.LineSegment
	length  float64
	score   float64
	// Направление от центра на дальний конец
	direction float64
}

// Locate находит стрелку внутри циферблата circle. Возвращаемый отрезок начинается
// у оси стрелки и заканчивается на её конце. Если стрелки нет, возвращается ошибка
// с причиной model.ErrNoNeedle
func (m NeedleLocator) Locate(frame *Frame, circle model.Circle) (model.LineSegment, model.Confidence, error) {
	if circle.Radius <= 0 {
		return model.LineSegment{}, model.ConfidenceFailed, errors.Annotate(model.ErrNoNeedle, "некорректный радиус циферблата")
	}
	r := circle.Radius
	w, h := frame.Width, frame.Height
	inner, outer := m.params.HubExclusion*r, m.params.RimExclusion*r

	mask := make([]bool, w*h)
	points := make([]image.Point, 0)
	for _, e := range frame.points() {
		d := math.Hypot(float64(e.x)-circle.X, float64(e.y)-circle.Y)
		if d >= inner && d <= outer {
			mask[e.y*w+e.x] = true
			points = append(points, image.Point{X: e.x, Y: e.y})
		}
	}
	if len(points) == 0 {
		return model.LineSegment{}, model.ConfidenceFailed, errors.Annotate(model.ErrNoNeedle, "нет границ внутри циферблата")
	}

	ppht := houghSegments{
		w:         w,
		h:         h,
		mask:      mask,
		threshold: maxInt(8, int(math.Round(m.params.LineVotes*r))),
		minLength: m.params.MinNeedleLength * r,
		maxGap:    maxInt(2, int(math.Round(m.params.MaxLineGap*r))),
		maxLines:  m.params.MaxLines,
	}
	segments := ppht.detect(points, m.params.Seed)

	candidates := make([]needleCandidate, 0, len(segments))
	for _, s := range segments {
		if c, ok := m.scoreSegment(s, circle); ok {
			candidates = append(candidates, c)
		}
	}
	m.log.Debugf("точек: %d, отрезков: %d, кандидатов: %d", len(points), len(segments), len(candidates))
	if len(candidates) == 0 {
		return model.LineSegment{}, model.ConfidenceFailed, errors.Annotate(model.ErrNoNeedle, "нет отрезка от центра достаточной длины")
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.score > best.score+scoreEpsilon ||
			(math.Abs(c.score-best.score) <= scoreEpsilon && c.length > best.length) {
			best = c
		}
	}

	confidence := model.ConfidenceHigh
	if best.score <= 0 {
		confidence = model.ConfidenceLow
	}
	for _, c := range candidates {
		if tool.AngleDiff(c.direction, best.direction) <= sameNeedleDegrees {
			continue
		}
		if c.score >= m.params.AmbiguityRatio*best.score {
			m.log.Debugf("вторая стрелка под углом %.1f с оценкой %.3f (лучшая %.3f)", c.direction, c.score, best.score)
			confidence = model.ConfidenceLow
			break
		}
	}
	return best.segment, confidence, nil
}

// Оценка отрезка: длиннее и ближе одним концом к центру - лучше
func (m NeedleLocator) scoreSegment(s model.LineSegment, circle model.Circle) (needleCandidate, bool) {
	r := circle.Radius
	d1 := math.Hypot(s.X1-circle.X, s.Y1-circle.Y)
	d2 := math.Hypot(s.X2-circle.X, s.Y2-circle.Y)
	if d2 < d1 {
		s = model.LineSegment{X1: s.X2, Y1: s.Y2, X2: s.X1, Y2: s.Y1}
		d1 = d2
	}
	length := s.Length()
	if length < m.params.MinNeedleLength*r || d1 > m.params.MaxPivotDistance*r {
		return needleCandidate{}, false
	}
	return needleCandidate{
		segment:   s,
		length:    length,
		score:     length/r - m.params.ProximityWeight*d1/r,
		direction: ResolveAngle(circle, s),
	}, true
}

// Прогрессивное вероятностное преобразование Хафа над маской точек границ
type houghSegments struct {
	w, h      int
	mask      []bool
	threshold int
	minLength float64
	maxGap    int
	maxLines  int
}

// Точки обходятся в случайном порядке, заданном seed. Как только ячейка накопителя
// набирает threshold голосов, прямая прослеживается в обе стороны до разрыва длиннее maxGap.
// Пройденные точки убираются из маски, а для принятого отрезка их голоса снимаются
func (m houghSegments) detect(points []image.Point, seed int64) []model.LineSegment {
	offset := m.w + m.h
	numRho := 2*offset + 1
	cosT := make([]float64, numAngle)
	sinT := make([]float64, numAngle)
	for n := 0; n < numAngle; n++ {
		theta := float64(n) * math.Pi / numAngle
		cosT[n], sinT[n] = math.Cos(theta), math.Sin(theta)
	}
	acc := make([]int32, numAngle*numRho)
	voted := make([]bool, m.w*m.h)
	rho := func(x, y, n int) int {
		return int(math.Round(float64(x)*cosT[n]+float64(y)*sinT[n])) + offset
	}
	unvote := func(x, y int) {
		if !voted[y*m.w+x] {
			return
		}
		voted[y*m.w+x] = false
		for n := 0; n < numAngle; n++ {
			acc[n*numRho+rho(x, y, n)]--
		}
	}

	segments := make([]model.LineSegment, 0)
	rng := rand.New(rand.NewSource(seed))
	for _, i := range rng.Perm(len(points)) {
		pt := points[i]
		if !m.mask[pt.Y*m.w+pt.X] {
			continue
		}

		maxVal, maxN := int32(m.threshold-1), -1
		for n := 0; n < numAngle; n++ {
			idx := n*numRho + rho(pt.X, pt.Y, n)
			acc[idx]++
			if acc[idx] > maxVal {
				maxVal, maxN = acc[idx], n
			}
		}
		voted[pt.Y*m.w+pt.X] = true
		if maxN < 0 {
			continue
		}

		// Направление прямой перпендикулярно нормали (cos, sin)
		a, b := -sinT[maxN], cosT[maxN]
		var dx, dy float64
		if math.Abs(a) > math.Abs(b) {
			dx, dy = math.Copysign(1, a), b/math.Abs(a)
		} else {
			dx, dy = a/math.Abs(b), math.Copysign(1, b)
		}

		var ends [2]image.Point
		var steps [2]int
		for k := 0; k < 2; k++ {
			sign := 1.0 - 2*float64(k)
			ends[k], steps[k] = m.trace(pt, sign*dx, sign*dy)
		}
		length := math.Hypot(float64(ends[1].X-ends[0].X), float64(ends[1].Y-ends[0].Y))
		good := length >= m.minLength

		for k := 0; k < 2; k++ {
			sign := 1.0 - 2*float64(k)
			m.consume(pt, sign*dx, sign*dy, steps[k], func(x, y int) {
				if good {
					unvote(x, y)
				}
			})
		}
		if good {
			segments = append(segments, model.LineSegment{
				X1: float64(ends[0].X), Y1: float64(ends[0].Y),
				X2: float64(ends[1].X), Y2: float64(ends[1].Y),
			})
			if len(segments) >= m.maxLines {
				break
			}
		}
	}
	return segments
}

// Проход от p с шагом (dx, dy) до разрыва длиннее maxGap. Точка засчитывается,
// если в окне 3x3 вокруг шага есть граница. Возвращает последнюю найденную точку и число шагов до неё
func (m houghSegments) trace(p image.Point, dx, dy float64) (image.Point, int) {
	end, endStep := p, 0
	gap := 0
	for step := 0; ; step++ {
		x := int(math.Round(float64(p.X) + dx*float64(step)))
		y := int(math.Round(float64(p.Y) + dy*float64(step)))
		if x < 0 || y < 0 || x >= m.w || y >= m.h {
			break
		}
		if hit, ok := m.nearest(x, y); ok {
			gap = 0
			end, endStep = hit, step
			continue
		}
		gap++
		if gap > m.maxGap {
			break
		}
	}
	return end, endStep
}

// Убирает из маски точки окна 3x3 на первых steps шагах от p
func (m houghSegments) consume(p image.Point, dx, dy float64, steps int, fn func(x, y int)) {
	for step := 0; step <= steps; step++ {
		x := int(math.Round(float64(p.X) + dx*float64(step)))
		y := int(math.Round(float64(p.Y) + dy*float64(step)))
		for oy := -1; oy <= 1; oy++ {
			for ox := -1; ox <= 1; ox++ {
				xx, yy := x+ox, y+oy
				if xx < 0 || yy < 0 || xx >= m.w || yy >= m.h || !m.mask[yy*m.w+xx] {
					continue
				}
				m.mask[yy*m.w+xx] = false
				fn(xx, yy)
			}
		}
	}
}

// Ближайшая к (x, y) точка маски в окне 3x3
func (m houghSegments) nearest(x, y int) (image.Point, bool) {
	if m.mask[y*m.w+x] {
		return image.Point{X: x, Y: y}, true
	}
	for _, o := range [8][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {-1, -1}, {1, -1}, {-1, 1}} {
		xx, yy := x+o[0], y+o[1]
		if xx < 0 || yy < 0 || xx >= m.w || yy >= m.h {
			continue
		}
		if m.mask[yy*m.w+xx] {
			return image.Point{X: xx, Y: yy}, true
		}
	}
	return image.Point{}, false
}
