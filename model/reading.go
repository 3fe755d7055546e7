package model

import (
	"time"
)

// Confidence достоверность показания
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceLow    Confidence = "LOW"
	ConfidenceFailed Confidence = "FAILED"
)

// Lower возвращает худшую из двух оценок
func (m Confidence) Lower(other Confidence) Confidence {
	rank := map[Confidence]int{ConfidenceHigh: 0, ConfidenceLow: 1, ConfidenceFailed: 2}
	if rank[other] > rank[m] {
		return other
	}
	return m
}

// Stage этап цикла снятия показаний
type Stage string

const (
	StageIdle           Stage = "IDLE"
	StageCapturing      Stage = "CAPTURING"
	StageLocatingGauge  Stage = "LOCATING_GAUGE"
	StageLocatingNeedle Stage = "LOCATING_NEEDLE"
	StageResolving      Stage = "RESOLVING"
	StageMapping        Stage = "MAPPING"
	StageEvaluating     Stage = "EVALUATING"
	StageDone           Stage = "DONE"
	StageFailed         Stage = "FAILED"
)

// Reading результат одного цикла снятия показаний. После создания не изменяется
type Reading struct {
	ID       string    `json:"id"`
	GaugeID  string    `json:"gaugeId"`
	CreateAt time.Time `json:"createAt"`
	// Угол стрелки по часовой стрелке от 12 часов, [0, 360)
	Angle float64 `json:"angle"`
	// Значение по шкале. nil, если снять показание не удалось
	Value *float64 `json:"value"`
	// Состояние тревог. Ненастроенные пороги отсутствуют
	Alarms     map[string]bool `json:"alarms"`
	Confidence Confidence      `json:"confidence"`
	// Конечный этап: DONE или FAILED
	Stage Stage `json:"stage"`
	// Этап, на котором произошёл сбой
	FailedStage Stage        `json:"failedStage,omitempty"`
	Err         error        `json:"-"`
	Circle      *Circle      `json:"circle,omitempty"`
	Needle      *LineSegment `json:"needle,omitempty"`
	// Исходный снимок
	Image []byte `json:"-"`
}

// Failed показание не получено
func (m Reading) Failed() bool {
	return m.Confidence == ConfidenceFailed
}

// ErrorText текст ошибки или пустая строка
func (m Reading) ErrorText() string {
	if m.Err == nil {
		return ""
	}
	return m.Err.Error()
}

// ReadingMetric элемент истории показаний (для отображения в графиках)
type ReadingMetric struct {
	Date       time.Time       `json:"date"`
	Value      *float64        `json:"value"`
	ValueMax   float64         `json:"valueMax"`
	ValueMin   float64         `json:"valueMin"`
	Angle      float64         `json:"angle"`
	Confidence Confidence      `json:"confidence"`
	Alarms     map[string]bool `json:"alarms,omitempty"`
	Image      string          `json:"image,omitempty"`
	Gauge      GaugeInfo       `json:"-"`
}
