package service

import (
	"context"
	"net/http"

	"github.com/kirsrus/gauge-reader/model"
)

// CameraSvc источник снимков манометра
//go:generate mockery --dir . --name CameraSvc --output ./mocks
type CameraSvc interface {
	// Возвращает содержимое очередного снимка
	Snapshot(ctx context.Context) ([]byte, error)
}

// WebSvc серис общения с WEB интерфейсом
//go:generate mockery --dir . --name WebSvc --output ./mocks
type WebSvc interface {
	// Хэндлер показа основной страницы
	Static(string)
	// Хэндлер списка манометров
	GaugesApi(string)
	// Хэндлер последнего показания манометра. Идентификатор ищется в параметре :id
	ReadingApi(string)
	// Хэндлер истории показаний манометра. Идентификатор ищется в параметре :id
	LogApi(string)
	// Хэндлер возвращения сохранённого снимка. Имя файла ищется в параметре :name
	SnapshotImage(string)
	// Хэндлер WebSocket канала новых показаний
	Feed(string)
	// Хэндлер метрик
	Metrics(string, http.Handler)
	// Хэндлер внеочередного снятия показаний. Идентификатор ищется в параметре :id
	Refresh(string, func(gaugeID string) error)
	// Отсылка события о новом показании
	ReadingChanged(model.ReadingChange)
	// Запуск WEB-сервера. Блокирует до завершения контекста
	Serve() error
}

// PublisherSvc публикация показаний в систему домашней автоматизации
//go:generate mockery --dir . --name PublisherSvc --output ./mocks
type PublisherSvc interface {
	// Регистрация датчиков манометра
	Announce(model.GaugeInfo) error
	// Публикация показания
	Publish(model.GaugeInfo, model.Reading) error
	// Отключение
	Close()
}
