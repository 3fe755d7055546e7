// Package metrics экспорт показаний манометров и хода циклов в Prometheus
package metrics

import (
	"net/http"
	"time"

	"github.com/kirsrus/gauge-reader/model"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gauge_reader"

// Metrics метрики циклов снятия показаний. Инициализируется через NewMetrics
type Metrics struct {
	gatherer prometheus.Gatherer

	cycles   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	value    *prometheus.GaugeVec
	angle    *prometheus.GaugeVec
	alarm    *prometheus.GaugeVec
}

// ConfigMetrics конфигурация Metrics
type ConfigMetrics struct {
	// Реестр метрик. По умолчанию новый реестр
	Registry *prometheus.Registry
}

// NewMetrics конструктор Metrics
func NewMetrics(config *ConfigMetrics) (*Metrics, error) {
	if config == nil {
		return nil, errors.New("не установлен config")
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	m := Metrics{
		gatherer: config.Registry,
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Количество циклов снятия показаний по достоверности.",
		}, []string{"gauge", "confidence"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Длительность цикла снятия показаний.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"gauge"}),
		value: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "value",
			Help:      "Последнее снятое значение по шкале манометра.",
		}, []string{"gauge", "unit"}),
		angle: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "angle_degrees",
			Help:      "Последний угол стрелки по часовой стрелке от 12 часов.",
		}, []string{"gauge"}),
		alarm: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alarm",
			Help:      "Состояние тревоги: 1 - сработала, 0 - нет.",
		}, []string{"gauge", "level"}),
	}

	for _, c := range []prometheus.Collector{m.cycles, m.duration, m.value, m.angle, m.alarm} {
		if err := config.Registry.Register(c); err != nil {
			return nil, errors.Annotate(err, "ошибка регистрации метрики")
		}
	}
	return &m, nil
}

// ObserveCycle учитывает завершённый цикл манометра info. Значение и тревоги
// обновляются только для снятого показания
func (m *Metrics) ObserveCycle(info model.GaugeInfo, reading model.Reading, duration time.Duration) {
	m.cycles.WithLabelValues(info.ID, string(reading.Confidence)).Inc()
	m.duration.WithLabelValues(info.ID).Observe(duration.Seconds())
	if reading.Failed() || reading.Value == nil {
		return
	}
	m.value.WithLabelValues(info.ID, info.Unit).Set(*reading.Value)
	m.angle.WithLabelValues(info.ID).Set(reading.Angle)
	for name, on := range reading.Alarms {
		v := 0.0
		if on {
			v = 1
		}
		m.alarm.WithLabelValues(info.ID, name).Set(v)
	}
}

// Handler обработчик HTTP для сбора метрик
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
