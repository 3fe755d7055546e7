package validator

import (
	"net/url"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

var reGaugeID = regexp.MustCompile(`^[\w-]+$`)

// Валидатор адреса снимка: http, https или file
func validatorSnapshot(fl validator.FieldLevel) bool {
	address, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	addr, err := url.Parse(address)
	if err != nil {
		return false
	}
	switch addr.Scheme {
	case "http", "https":
		return addr.Host != ""
	case "file":
		return addr.Path != ""
	}
	return false
}

// Валидатор идентификатора манометра. Идентификатор входит в имена файлов и топики MQTT
func validatorGaugeID(fl validator.FieldLevel) bool {
	id, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return reGaugeID.MatchString(id)
}

// Валидатор интервала опроса: 1 или 15 минут
func validatorInterval(fl validator.FieldLevel) bool {
	interval, ok := fl.Field().Interface().(time.Duration)
	if !ok {
		return false
	}
	return interval == time.Minute || interval == 15*time.Minute
}
