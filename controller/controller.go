package controller

import (
	"context"

	"github.com/kirsrus/gauge-reader/model"
)

// ReaderCtl контроллер снятия показаний одного манометра
//go:generate mockery --dir . --name ReaderCtl --output ./mocks
type ReaderCtl interface {
	// Выполняет один цикл снятия показаний. Никогда не возвращает ошибку: сбой
	// отражается в показании с достоверностью FAILED
	RunCycle(ctx context.Context) model.Reading
	// Описание манометра
	Info() model.GaugeInfo
}
