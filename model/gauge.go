package model

import (
	"math"
	"time"

	"github.com/juju/errors"
)

// GaugeInfo описывает настроенный манометр
type GaugeInfo struct {
	// Идентификатор датчика. Используется в именах файлов и топиках MQTT
	ID   string `conform:"trim" validate:"required,gaugeid"`
	Name string `conform:"trim" validate:"required"`
	// Адрес снимка камеры (http, https или file)
	SnapshotURL string `conform:"trim" validate:"required,snapshot"`
	Username    string `conform:"trim"`
	Password    string
	// Период опроса: 1 или 15 минут
	Interval time.Duration `validate:"required,interval"`
	// Таймаут одного цикла снятия показаний
	Timeout     time.Duration
	Unit        string `conform:"trim"`
	DeviceClass string `conform:"trim"`
	Calibration Calibration
	Thresholds  ThresholdSet `validate:"dive"`
}

// Calibration калибровка шкалы: значения на концах и положение дуги шкалы.
// Углы в градусах по часовой стрелке от 12 часов
type Calibration struct {
	MinValue    float64 `json:"minValue"`
	MaxValue    float64 `json:"maxValue"`
	SweepStart  float64 `json:"sweepStart"`
	SweepExtent float64 `json:"sweepExtent"`
}

// Validate проверка калибровки. Нарушение возвращается с причиной ErrInvalidCalibration.
// Начало шкалы берётся по модулю 360
func (m Calibration) Validate() error {
	if !(m.MaxValue > m.MinValue) {
		return errors.Annotatef(ErrInvalidCalibration, "максимум %v не больше минимума %v", m.MaxValue, m.MinValue)
	}
	if !(m.SweepExtent > 0 && m.SweepExtent <= 360) {
		return errors.Annotatef(ErrInvalidCalibration, "дуга шкалы %v вне (0, 360]", m.SweepExtent)
	}
	if math.IsNaN(m.SweepStart) || math.IsInf(m.SweepStart, 0) {
		return errors.Annotatef(ErrInvalidCalibration, "начало шкалы %v", m.SweepStart)
	}
	return nil
}

// Threshold именованный порог срабатывания тревоги
type Threshold struct {
	Name  string  `json:"name" conform:"trim" validate:"required"`
	Value float64 `json:"value"`
}

// ThresholdSet набор порогов. Порядок не гарантируется
type ThresholdSet []Threshold

// Validate имена порогов непустые и не повторяются
func (m ThresholdSet) Validate() error {
	names := make(map[string]struct{}, len(m))
	for _, v := range m {
		if v.Name == "" {
			return errors.Annotate(ErrInvalidCalibration, "не задано имя порога")
		}
		if _, ok := names[v.Name]; ok {
			return errors.Annotatef(ErrInvalidCalibration, "порог %s задан повторно", v.Name)
		}
		names[v.Name] = struct{}{}
	}
	return nil
}
