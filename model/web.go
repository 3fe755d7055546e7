package model

import (
	"time"
)

// ReadingChange событие о новом показании для WEB-интерфейса
type ReadingChange struct {
	GaugeID    string          `json:"gaugeId"`
	Name       string          `json:"name"`
	CreateAt   time.Time       `json:"createAt"`
	Value      *float64        `json:"value"`
	Unit       string          `json:"unit"`
	Angle      float64         `json:"angle"`
	Alarms     map[string]bool `json:"alarms"`
	Confidence Confidence      `json:"confidence"`
	Error      string          `json:"error,omitempty"`
	Image      string          `json:"image,omitempty"`
}

// NewReadingChange событие из показания reading датчика info с сохранённым снимком image
func NewReadingChange(info GaugeInfo, reading Reading, image string) ReadingChange {
	return ReadingChange{
		GaugeID:    info.ID,
		Name:       info.Name,
		CreateAt:   reading.CreateAt,
		Value:      reading.Value,
		Unit:       info.Unit,
		Angle:      reading.Angle,
		Alarms:     reading.Alarms,
		Confidence: reading.Confidence,
		Error:      reading.ErrorText(),
		Image:      image,
	}
}
