package reader

import (
	"context"
	"io/ioutil"
	"sync"
	"time"

	"github.com/kirsrus/gauge-reader/controller"
	"github.com/kirsrus/gauge-reader/model"
	"github.com/kirsrus/gauge-reader/pkg/scale"
	"github.com/kirsrus/gauge-reader/pkg/tool"
	"github.com/kirsrus/gauge-reader/pkg/vision"
	"github.com/kirsrus/gauge-reader/service"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

const (
	// Знаков после запятой в значении
	precision = 2
)

// Reader цикл снятия показаний одного манометра: снимок, циферблат, стрелка, угол,
// значение, тревоги. Инициализируется через NewReader. Циклы одного Reader выполняются
// строго последовательно
type Reader struct {
	log *logrus.Entry

	info   model.GaugeInfo
	camera service.CameraSvc

	params        vision.Params
	gaugeLocator  *vision.GaugeLocator
	needleLocator *vision.NeedleLocator

	precision         int
	keepLastOnFailure bool

	mu       sync.Mutex
	smoother *scale.Smoother
}

// ConfigReader конфигурация Reader
type ConfigReader struct {
	Log *logrus.Logger
	// Описание манометра с калибровкой и порогами
	Info model.GaugeInfo
	// Параметры детекторов
	Params vision.Params
	// Коэффициент экспоненциального сглаживания (0, 1]. 0 - без сглаживания
	Smoothing float64
	// При сбое возвращать последнее значение (достоверность остаётся FAILED)
	KeepLastOnFailure bool
	// Знаков после запятой. Отрицательное значение отключает округление
	Precision int
}

// NewReader конструктор Reader. Некорректная калибровка возвращается с причиной
// model.ErrInvalidCalibration
func NewReader(camera service.CameraSvc, config *ConfigReader) (controller.ReaderCtl, error) {
	if config == nil {
		return nil, errors.New("не установлен config")
	}
	if config.Log == nil {
		config.Log = logrus.New()
		config.Log.Out = ioutil.Discard
	}
	if camera == nil {
		return nil, errors.New("не указана служба camera")
	}
	if config.Info.ID == "" {
		return nil, errors.New("не указан идентификатор манометра")
	}
	config.Info.Calibration.SweepStart = tool.NormalizeDegrees(config.Info.Calibration.SweepStart)
	if err := config.Info.Calibration.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if err := config.Info.Thresholds.Validate(); err != nil {
		return nil, errors.Trace(err)
	}

	gaugeLocator, err := vision.NewGaugeLocator(&vision.ConfigGaugeLocator{
		Log:    config.Log,
		Params: config.Params,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	needleLocator, err := vision.NewNeedleLocator(&vision.ConfigNeedleLocator{
		Log:    config.Log,
		Params: config.Params,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}

	reader := Reader{
		log: config.Log.WithFields(map[string]interface{}{
			"module": "reader",
			"scope":  "controller",
			"gauge":  config.Info.ID,
		}),
		info:   config.Info,
		camera: camera,

		params:        config.Params,
		gaugeLocator:  gaugeLocator,
		needleLocator: needleLocator,

		precision:         precision,
		keepLastOnFailure: config.KeepLastOnFailure,
		smoother:          scale.NewSmoother(config.Smoothing),
	}
	if config.Precision != 0 {
		reader.precision = config.Precision
	}

	return &reader, nil
}

// Info описание манометра
func (m *Reader) Info() model.GaugeInfo {
	return m.info
}

// RunCycle один цикл снятия показаний. Ошибки и паники этапов не выходят за пределы
// цикла: показание возвращается с достоверностью FAILED и этапом сбоя
func (m *Reader) RunCycle(ctx context.Context) (reading model.Reading) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reading = model.Reading{
		ID:       uuid.New().String(),
		GaugeID:  m.info.ID,
		CreateAt: time.Now(),
		Alarms:   make(map[string]bool),
		Stage:    model.StageIdle,
	}
	stage := model.StageIdle

	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("паника на этапе %s: %v", stage, r)
			reading = m.failed(reading, stage, errors.Errorf("паника на этапе %s: %v", stage, r))
		}
	}()

	// Переход к следующему этапу, если цикл не прерван
	next := func(s model.Stage) error {
		stage = s
		m.log.Debugf("этап %s", s)
		if err := ctx.Err(); err != nil {
			return errors.Annotate(err, "цикл прерван")
		}
		return nil
	}

	if err := next(model.StageCapturing); err != nil {
		return m.failed(reading, stage, err)
	}
	content, err := m.camera.Snapshot(ctx)
	if err != nil {
		return m.failed(reading, stage, errors.Wrapf(err, model.ErrCameraUnavailable, "%s", err))
	}
	reading.Image = content
	frame, err := vision.Decode(content, m.params)
	if err != nil {
		return m.failed(reading, stage, errors.Wrapf(err, model.ErrCameraUnavailable, "%s", err))
	}

	if err := next(model.StageLocatingGauge); err != nil {
		return m.failed(reading, stage, err)
	}
	circle, circleConfidence, err := m.gaugeLocator.Locate(frame)
	if err != nil {
		return m.failed(reading, stage, err)
	}
	sourceCircle := circle.Scale(1 / frame.Scale)
	reading.Circle = &sourceCircle

	if err := next(model.StageLocatingNeedle); err != nil {
		return m.failed(reading, stage, err)
	}
	needle, needleConfidence, err := m.needleLocator.Locate(frame, circle)
	if err != nil {
		return m.failed(reading, stage, err)
	}
	sourceNeedle := needle.Scale(1 / frame.Scale)
	reading.Needle = &sourceNeedle

	if err := next(model.StageResolving); err != nil {
		return m.failed(reading, stage, err)
	}
	reading.Angle = vision.ResolveAngle(circle, needle)

	if err := next(model.StageMapping); err != nil {
		return m.failed(reading, stage, err)
	}
	value := m.round(m.smoother.Apply(scale.Map(reading.Angle, m.info.Calibration)))

	if err := next(model.StageEvaluating); err != nil {
		return m.failed(reading, stage, err)
	}
	reading.Alarms = scale.Evaluate(value, m.info.Thresholds)

	reading.Value = &value
	reading.Confidence = circleConfidence.Lower(needleConfidence)
	reading.Stage = model.StageDone
	m.log.Debugf("угол %.1f, значение %v %s (%s)", reading.Angle, value, m.info.Unit, reading.Confidence)
	return reading
}

// Перевод показания в FAILED на этапе stage с ошибкой err
func (m *Reader) failed(reading model.Reading, stage model.Stage, err error) model.Reading {
	m.log.Debugf("сбой на этапе %s: %v", stage, err)
	reading.Stage = model.StageFailed
	reading.FailedStage = stage
	reading.Err = err
	reading.Confidence = model.ConfidenceFailed
	reading.Value = nil
	reading.Alarms = make(map[string]bool)
	if m.keepLastOnFailure {
		if last, ok := m.smoother.Last(); ok {
			value := m.round(last)
			reading.Value = &value
		}
	}
	return reading
}

func (m *Reader) round(v float64) float64 {
	if m.precision < 0 {
		return v
	}
	return tool.RoundTo(v, m.precision)
}
