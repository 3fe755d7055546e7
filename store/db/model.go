package db

import (
	"encoding/json"
	"time"

	"github.com/kirsrus/gauge-reader/model"

	"github.com/juju/errors"
)

type (
	// GormModelUnscoped модель эквивалент gorm.Model без сохранения удалений
	GormModelUnscoped struct {
		ID        int `gorm:"primaryKey"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

type (
	// Reading лог показаний манометров
	Reading struct {
		GormModelUnscoped
		// Идентификатор цикла
		UID     string `gorm:"uniqueIndex"`
		GaugeID string `gorm:"index"`
		Angle   float64
		// NULL, если показание не снято
		Value      *float64
		Confidence string
		Stage      string
		// Этап сбоя (пусто для удачного цикла)
		FailedStage string
		// Текст ошибки сбоя
		Error string
		// Состояние тревог в JSON
		Alarms    string
		ImageName string
	}
)

// TableName имя таблицы
func (Reading) TableName() string {
	return "reading_log"
}

// FromReading заполняет текущую структуру из model.Reading
func (m *Reading) FromReading(reading model.Reading, imageName string) error {
	alarms, err := json.Marshal(reading.Alarms)
	if err != nil {
		return err
	}
	*m = Reading{
		GormModelUnscoped: GormModelUnscoped{CreatedAt: reading.CreateAt},
		UID:               reading.ID,
		GaugeID:           reading.GaugeID,
		Angle:             reading.Angle,
		Value:             reading.Value,
		Confidence:        string(reading.Confidence),
		Stage:             string(reading.Stage),
		FailedStage:       string(reading.FailedStage),
		Error:             reading.ErrorText(),
		Alarms:            string(alarms),
		ImageName:         imageName,
	}
	return nil
}

// ToReading маппинг данных в model.Reading. Снимок не загружается
func (m Reading) ToReading() model.Reading {
	reading := model.Reading{
		ID:          m.UID,
		GaugeID:     m.GaugeID,
		CreateAt:    m.CreatedAt,
		Angle:       m.Angle,
		Value:       m.Value,
		Alarms:      m.alarms(),
		Confidence:  model.Confidence(m.Confidence),
		Stage:       model.Stage(m.Stage),
		FailedStage: model.Stage(m.FailedStage),
	}
	if m.Error != "" {
		reading.Err = errors.New(m.Error)
	}
	return reading
}

// ToMetric маппинг данных в элемент истории показаний
func (m Reading) ToMetric() model.ReadingMetric {
	return model.ReadingMetric{
		Date:       m.CreatedAt,
		Value:      m.Value,
		Angle:      m.Angle,
		Confidence: model.Confidence(m.Confidence),
		Alarms:     m.alarms(),
		Image:      m.ImageName,
	}
}

func (m Reading) alarms() map[string]bool {
	alarms := make(map[string]bool)
	if m.Alarms != "" {
		_ = json.Unmarshal([]byte(m.Alarms), &alarms)
	}
	return alarms
}
