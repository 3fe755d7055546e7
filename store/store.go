package store

import (
	"time"

	"github.com/kirsrus/gauge-reader/model"
)

// DbStore репозирторий общения с БД
//go:generate mockery --dir . --name DbStore --output ./mocks
type DbStore interface {
	// Проверяет, что ошибка err обозначает, что записи не найдены
	IsNotFound(err error) bool

	// Получает снимок по его идентификационному имени в БД
	SnapshotImage(name string) ([]byte, error)
	// Сохраняет снимок манометра gaugeID в БД и возвращает его идентификационное имя файла
	SetSnapshotImage(create time.Time, gaugeID string, content []byte) (*string, error)

	// Сохранение показания в лог показаний. imageName - имя сохранённого снимка (может быть пустым)
	SetReadingLog(reading model.Reading, imageName string) error
	// Возвращает последнее показание манометра. Если записей нет, ошибка проверяется через IsNotFound
	LastReading(gaugeID string) (*model.Reading, error)

	// Возвращает показания манометра gaugeID за days дней (со смещением offsetDays) по каждому
	// циклу. Если compact=true - показания сжимаются до дней с минимальным и максимальным значением
	// каждого дня. Сбойные циклы в сжатие не попадают
	GaugeLog(gaugeID string, days uint, offsetDays uint, compact bool) ([]model.ReadingMetric, error)

	// Очищает записи в БД и снимки старше days дней
	Clean(days int) error
}
