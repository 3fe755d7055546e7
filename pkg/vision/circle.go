package vision

import (
	"io/ioutil"
	"math"
	"sort"

	"github.com/kirsrus/gauge-reader/model"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

// Равенство оценок кандидатов
const scoreEpsilon = 1e-6

// GaugeLocator поиск циферблата градиентным преобразованием Хафа.
// Инициализируется через NewGaugeLocator
type GaugeLocator struct {
	log    *logrus.Entry
	params Params
}

// ConfigGaugeLocator конфигурация GaugeLocator
type ConfigGaugeLocator struct {
	Log    *logrus.Logger
	Params Params
}

// NewGaugeLocator конструктор GaugeLocator
func NewGaugeLocator(config *ConfigGaugeLocator) (*GaugeLocator, error) {
	if config == nil {
		return nil, errors.New("не установлен config")
	}
	if config.Log == nil {
		config.Log = logrus.New()
		config.Log.Out = ioutil.Discard
	}
	params := config.Params.withDefaults()
	if params.MinRadius >= params.MaxRadius || params.MaxRadius > 1 {
		return nil, errors.Errorf("некорректный диапазон радиусов [%v, %v]", params.MinRadius, params.MaxRadius)
	}
	return &GaugeLocator{
		log: config.Log.WithFields(map[string]interface{}{
			"module": "gauge",
			"scope":  "vision",
		}),
		params: params,
	}, nil
}

// Кандидат в циферблаты
type circleCandidate struct {
	circle  model.Circle
	support float64
}

// Locate находит окружность циферблата на кадре. Если правдоподобной окружности нет,
// возвращается ошибка с причиной model.ErrNotFound
func (m GaugeLocator) Locate(frame *Frame) (model.Circle, model.Confidence, error) {
	edges := frame.points()
	if len(edges) == 0 {
		return model.Circle{}, model.ConfidenceFailed, errors.Annotate(model.ErrNotFound, "на кадре нет границ")
	}
	w, h := frame.Width, frame.Height
	minDim := float64(minInt(w, h))
	rmin := maxInt(3, int(math.Ceil(m.params.MinRadius*minDim)))
	rmax := int(m.params.MaxRadius * minDim)
	if rmax <= rmin {
		return model.Circle{}, model.ConfidenceFailed, errors.Annotatef(model.ErrNotFound, "кадр %dx%d слишком мал", w, h)
	}

	// Каждая точка границы голосует за центры вдоль своего градиента в обе стороны
	acc := make([]float64, w*h)
	for _, e := range edges {
		ux, uy := e.gx/e.mag, e.gy/e.mag
		for _, sign := range [2]float64{1, -1} {
			for r := rmin; r <= rmax; r++ {
				cx := int(math.Round(float64(e.x) + sign*ux*float64(r)))
				cy := int(math.Round(float64(e.y) + sign*uy*float64(r)))
				if cx < 0 || cy < 0 || cx >= w || cy >= h {
					break
				}
				acc[cy*w+cx]++
			}
		}
	}
	acc = boxSmooth(acc, w, h)

	centers := localMaxima(acc, w, h, m.params.CircleCandidates, float64(rmin)/2)
	candidates := make([]circleCandidate, 0, len(centers))
	for _, c := range centers {
		cx, cy := refineCenter(acc, w, h, c)
		radius, support := radiusSupport(edges, cx, cy, rmin, rmax)
		if support < m.params.MinCircleSupport {
			continue
		}
		candidates = append(candidates, circleCandidate{
			circle:  model.Circle{X: cx, Y: cy, Radius: float64(radius)},
			support: support,
		})
	}
	m.log.Debugf("границ: %d, центров: %d, кандидатов: %d", len(edges), len(centers), len(candidates))
	if len(candidates) == 0 {
		return model.Circle{}, model.ConfidenceFailed, errors.Annotate(model.ErrNotFound, "нет окружности с достаточным покрытием")
	}

	best := selectCircle(candidates, float64(w)/2, float64(h)/2)
	confidence := model.ConfidenceHigh
	if best.support < m.params.HighCircleSupport || !best.circle.Inside(w, h) {
		confidence = model.ConfidenceLow
	}
	m.log.Debugf("циферблат (%.1f, %.1f) r=%.1f покрытие %.2f", best.circle.X, best.circle.Y, best.circle.Radius, best.support)
	return best.circle, confidence, nil
}

// Наибольшее покрытие, при равенстве ближайший к центру кадра (fx, fy)
func selectCircle(candidates []circleCandidate, fx, fy float64) circleCandidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case c.support > best.support+scoreEpsilon:
			best = c
		case math.Abs(c.support-best.support) <= scoreEpsilon:
			if math.Hypot(c.circle.X-fx, c.circle.Y-fy) < math.Hypot(best.circle.X-fx, best.circle.Y-fy) {
				best = c
			}
		}
	}
	return best
}

// Радиус с наибольшей долей окружности, покрытой границами (окно ±1 пиксель)
func radiusSupport(edges []edgePoint, cx, cy float64, rmin, rmax int) (int, float64) {
	hist := make([]float64, rmax+2)
	for _, e := range edges {
		bin := int(math.Round(math.Hypot(float64(e.x)-cx, float64(e.y)-cy)))
		if bin >= rmin-1 && bin <= rmax+1 {
			hist[bin]++
		}
	}
	bestR, bestS := rmin, -1.0
	for r := rmin; r <= rmax; r++ {
		s := (hist[r-1] + hist[r] + hist[r+1]) / (2 * math.Pi * float64(r))
		if s > bestS {
			bestR, bestS = r, s
		}
	}
	return bestR, bestS
}

// Сглаживание накопителя окном 3x3
func boxSmooth(src []float64, w, h int) []float64 {
	dst := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, n float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					xx, yy := x+dx, y+dy
					if xx < 0 || yy < 0 || xx >= w || yy >= h {
						continue
					}
					sum += src[yy*w+xx]
					n++
				}
			}
			dst[y*w+x] = sum / n
		}
	}
	return dst
}

// Локальные максимумы накопителя по убыванию, не ближе minDist друг к другу, не более limit
func localMaxima(acc []float64, w, h, limit int, minDist float64) [][2]int {
	type peak struct {
		x, y int
		v    float64
	}
	peaks := make([]peak, 0)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			v := acc[y*w+x]
			if v <= 0 {
				continue
			}
			isMax := true
			for dy := -1; dy <= 1 && isMax; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if (dx != 0 || dy != 0) && acc[(y+dy)*w+x+dx] > v {
						isMax = false
						break
					}
				}
			}
			if isMax {
				peaks = append(peaks, peak{x: x, y: y, v: v})
			}
		}
	}
	sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].v > peaks[j].v })

	result := make([][2]int, 0, limit)
	for _, p := range peaks {
		if len(result) >= limit {
			break
		}
		near := false
		for _, r := range result {
			if math.Hypot(float64(p.x-r[0]), float64(p.y-r[1])) < minDist {
				near = true
				break
			}
		}
		if !near {
			result = append(result, [2]int{p.x, p.y})
		}
	}
	return result
}

// Уточнение центра взвешенным средним накопителя в окне 3x3
func refineCenter(acc []float64, w, h int, c [2]int) (float64, float64) {
	var sx, sy, sw float64
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			x, y := c[0]+dx, c[1]+dy
			if x < 0 || y < 0 || x >= w || y >= h {
				continue
			}
			v := acc[y*w+x]
			sx += v * float64(x)
			sy += v * float64(y)
			sw += v
		}
	}
	if sw == 0 {
		return float64(c[0]), float64(c[1])
	}
	return sx / sw, sy / sw
}
