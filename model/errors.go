package model

import "github.com/juju/errors"

// Ошибки цикла снятия показаний. Проверяются через errors.Cause
var (
	// ErrCameraUnavailable снимок с камеры не получен или не является изображением
	ErrCameraUnavailable = errors.New("камера недоступна")
	// ErrNotFound на снимке не найден циферблат
	ErrNotFound = errors.New("циферблат не найден")
	// ErrNoNeedle циферблат найден, стрелка нет
	ErrNoNeedle = errors.New("стрелка не найдена")
	// ErrInvalidCalibration некорректная калибровка шкалы (обнаруживается при настройке)
	ErrInvalidCalibration = errors.New("некорректная калибровка")
)
