package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kirsrus/gauge-reader/model"
	"github.com/kirsrus/gauge-reader/pkg/tool"
	"github.com/kirsrus/gauge-reader/pkg/validator"
	"github.com/kirsrus/gauge-reader/pkg/vision"

	"github.com/jinzhu/configor"
	"github.com/joho/godotenv"
	"github.com/juju/errors"
)

var (
	config Config
	once   sync.Once
)

const (
	FileName = "config.yaml"
	// Префикс переменных окружения, переопределяющих конфигурацию (GAUGE_HTTP_PORT и т.п.)
	EnvPrefix = "GAUGE"
)

// Значения по умолчанию для описания манометра
const (
	DefaultInterval    uint = 15
	DefaultTimeout     uint = 10
	DefaultUnit             = "bar"
	DefaultDeviceClass      = "pressure"
	DefaultMinValue         = 0.0
	DefaultMaxValue         = 3.0
	DefaultSweepStart       = 225.0
	DefaultSweepExtent      = 270.0
)

// Get единажды читает и возвращает конфигурацию
func Get() *Config {
	return GetWithPath(FileName)
}

// GetWithPath единожды читает и возвращает конфигурацию
func GetWithPath(filepath string) *Config {
	once.Do(func() {
		if _, err := os.Stat(filepath); err != nil {
			log.Fatalf("файл конфигурации недоступен: %s", err)
		}
		if err := Load(&config, filepath); err != nil {
			log.Fatalf("ошибка чтения файла конфигурации %s: %s", filepath, err)
		}
	})
	return &config
}

// Load читает конфигурацию из файла filepath. Переменные из .env (если есть)
// попадают в окружение и переопределяют значения файла
func Load(cfg *Config, filepath string) error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return err
		}
	}
	return configor.New(&configor.Config{ENVPrefix: EnvPrefix}).Load(cfg, filepath)
}

// GaugeInfos описания манометров для контроллеров
func (m *Config) GaugeInfos() []model.GaugeInfo {
	result := make([]model.GaugeInfo, 0, len(m.Gauge.Info))
	for _, g := range m.Gauge.Info {
		thresholds := make(model.ThresholdSet, 0, len(g.Alarms))
		for i, a := range g.Alarms {
			name := a.Name
			if name == "" {
				name = "alarm_" + strconv.Itoa(i+1)
			}
			thresholds = append(thresholds, model.Threshold{Name: name, Value: a.Threshold})
		}
		result = append(result, model.GaugeInfo{
			ID:          g.ID,
			Name:        g.Name,
			SnapshotURL: g.SnapshotURL,
			Username:    g.Username,
			Password:    g.Password,
			Interval:    time.Duration(uintOr(g.Interval, DefaultInterval)) * time.Minute,
			Timeout:     time.Duration(uintOr(g.Timeout, DefaultTimeout)) * time.Second,
			Unit:        stringOr(g.Unit, DefaultUnit),
			DeviceClass: stringOr(g.DeviceClass, DefaultDeviceClass),
			Calibration: model.Calibration{
				MinValue:    floatOr(g.MinValue, DefaultMinValue),
				MaxValue:    floatOr(g.MaxValue, DefaultMaxValue),
				SweepStart:  tool.NormalizeDegrees(floatOr(g.SweepStart, DefaultSweepStart)),
				SweepExtent: floatOr(g.SweepExtent, DefaultSweepExtent),
			},
			Thresholds: thresholds,
		})
	}
	return result
}

func uintOr(v *uint, def uint) uint {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Gauges описания манометров после корректировки (trim) и проверки. Одни и те же
// описания получают база данных, WEB и контроллеры
func (m *Config) Gauges() ([]model.GaugeInfo, error) {
	gauges := m.GaugeInfos()
	ids := make(map[string]struct{}, len(gauges))
	for i := range gauges {
		if err := validator.Get().ValidateWithConform(&gauges[i]); err != nil {
			return nil, errors.Annotatef(err, "ошибка в описании манометра %s", gauges[i].ID)
		}
		if _, ok := ids[gauges[i].ID]; ok {
			return nil, errors.Errorf("манометр %s описан дважды", gauges[i].ID)
		}
		ids[gauges[i].ID] = struct{}{}
	}
	return gauges, nil
}

// ReaderOptions коэффициент сглаживания и удержание последнего значения манометра id
func (m *Config) ReaderOptions(id string) (smoothing float64, keepLast bool) {
	for _, g := range m.Gauge.Info {
		if strings.TrimSpace(g.ID) == id {
			return g.Smoothing, g.KeepLastOnFailure
		}
	}
	return 0, false
}

// VisionParams параметры детекторов. Незаданные значения берутся по умолчанию
func (m *Config) VisionParams() vision.Params {
	return vision.Params{
		MaxDimension:      m.Detector.MaxDimension,
		MinCircleSupport:  m.Detector.MinCircleSupport,
		HighCircleSupport: m.Detector.HighCircleSupport,
		AmbiguityRatio:    m.Detector.AmbiguityRatio,
		Seed:              m.Detector.Seed,
	}
}
