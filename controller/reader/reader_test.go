package reader

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/kirsrus/gauge-reader/model"
	"github.com/kirsrus/gauge-reader/pkg/vision/visiontest"
	"github.com/kirsrus/gauge-reader/service/mocks"

	"github.com/juju/errors"
	"github.com/stretchr/testify/mock"
)

// Манометр 0-3 бар с дугой 270 градусов от 225
func testInfo() model.GaugeInfo {
	return model.GaugeInfo{
		ID:          "boiler",
		Name:        "Котёл",
		SnapshotURL: "http://camera.local/snapshot.jpg",
		Interval:    time.Minute,
		Unit:        "bar",
		Calibration: model.Calibration{MinValue: 0, MaxValue: 3, SweepStart: 225, SweepExtent: 270},
		Thresholds:  model.ThresholdSet{{Name: "warning", Value: 1.8}, {Name: "critical", Value: 2.5}},
	}
}

func cameraWith(content []byte, err error) *mocks.CameraSvc {
	camera := new(mocks.CameraSvc)
	camera.On("Snapshot", mock.Anything).Return(content, err)
	return camera
}

func newTestReader(t *testing.T, camera *mocks.CameraSvc, config *ConfigReader) *Reader {
	t.Helper()
	if config == nil {
		config = &ConfigReader{}
	}
	if config.Info.ID == "" {
		config.Info = testInfo()
	}
	r, err := NewReader(camera, config)
	if err != nil {
		t.Fatal(errors.ErrorStack(err))
	}
	return r.(*Reader)
}

func TestReader_RunCycle(t *testing.T) {
	tests := []struct {
		name         string
		angle        float64
		wantValue    float64
		wantWarning  bool
		wantCritical bool
	}{
		{name: "начало шкалы", angle: 225, wantValue: 0},
		{name: "середина шкалы", angle: 0, wantValue: 1.5},
		{name: "между порогами", angle: 45, wantValue: 2.0, wantWarning: true},
		{name: "конец шкалы", angle: 135, wantValue: 3, wantWarning: true, wantCritical: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			camera := cameraWith(visiontest.PNG(visiontest.Default(tt.angle).Render()), nil)
			reading := newTestReader(t, camera, nil).RunCycle(context.Background())

			if reading.Stage != model.StageDone {
				t.Fatalf("Stage = %s (%s на %s), want DONE", reading.Stage, reading.ErrorText(), reading.FailedStage)
			}
			if reading.Confidence != model.ConfidenceHigh {
				t.Errorf("Confidence = %s, want HIGH", reading.Confidence)
			}
			if reading.Value == nil {
				t.Fatal("Value = nil")
			}
			if math.Abs(*reading.Value-tt.wantValue) > 0.06 {
				t.Errorf("Value = %v, want %v ± 0.06", *reading.Value, tt.wantValue)
			}
			if len(reading.Alarms) != 2 || reading.Alarms["warning"] != tt.wantWarning || reading.Alarms["critical"] != tt.wantCritical {
				t.Errorf("Alarms = %v", reading.Alarms)
			}
			if reading.ID == "" || reading.GaugeID != "boiler" || reading.Circle == nil || reading.Needle == nil || len(reading.Image) == 0 {
				t.Errorf("неполное показание: %+v", reading)
			}
			camera.AssertExpectations(t)
		})
	}
}

func TestReader_RunCycleFailed(t *testing.T) {
	noNeedle := visiontest.Default(0)
	noNeedle.Needles = nil

	tests := []struct {
		name      string
		content   []byte
		cameraErr error
		wantStage model.Stage
		wantCause error
	}{
		{
			name:      "камера недоступна",
			cameraErr: errors.New("connection refused"),
			wantStage: model.StageCapturing,
			wantCause: model.ErrCameraUnavailable,
		},
		{
			name:      "не изображение",
			content:   []byte(`{"error":"unauthorized"}`),
			wantStage: model.StageCapturing,
			wantCause: model.ErrCameraUnavailable,
		},
		{
			name:      "пустой кадр",
			content:   visiontest.PNG(visiontest.Blank(240, false)),
			wantStage: model.StageLocatingGauge,
			wantCause: model.ErrNotFound,
		},
		{
			name:      "кадр без окружностей",
			content:   visiontest.PNG(visiontest.Blank(240, true)),
			wantStage: model.StageLocatingGauge,
			wantCause: model.ErrNotFound,
		},
		{
			name:      "нет стрелки",
			content:   visiontest.PNG(noNeedle.Render()),
			wantStage: model.StageLocatingNeedle,
			wantCause: model.ErrNoNeedle,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading := newTestReader(t, cameraWith(tt.content, tt.cameraErr), nil).RunCycle(context.Background())

			if reading.Stage != model.StageFailed || reading.Confidence != model.ConfidenceFailed {
				t.Fatalf("Stage = %s, Confidence = %s, want FAILED", reading.Stage, reading.Confidence)
			}
			if reading.FailedStage != tt.wantStage {
				t.Errorf("FailedStage = %s, want %s", reading.FailedStage, tt.wantStage)
			}
			if errors.Cause(reading.Err) != tt.wantCause {
				t.Errorf("Err = %v, want причину %v", reading.Err, tt.wantCause)
			}
			if reading.Value != nil {
				t.Errorf("Value = %v, want nil", *reading.Value)
			}
			if len(reading.Alarms) != 0 {
				t.Errorf("Alarms = %v, want пусто", reading.Alarms)
			}
		})
	}
}

func TestReader_KeepLastOnFailure(t *testing.T) {
	camera := new(mocks.CameraSvc)
	camera.On("Snapshot", mock.Anything).Return(visiontest.PNG(visiontest.Default(0).Render()), nil).Once()
	camera.On("Snapshot", mock.Anything).Return(nil, errors.New("timeout")).Once()

	r := newTestReader(t, camera, &ConfigReader{KeepLastOnFailure: true})
	first := r.RunCycle(context.Background())
	if first.Value == nil {
		t.Fatalf("первый цикл без значения: %v", first.Err)
	}
	second := r.RunCycle(context.Background())
	if second.Confidence != model.ConfidenceFailed {
		t.Errorf("Confidence = %s, want FAILED", second.Confidence)
	}
	if second.Value == nil || *second.Value != *first.Value {
		t.Errorf("Value = %v, want последнее значение %v", second.Value, *first.Value)
	}
	camera.AssertExpectations(t)
}

func TestReader_Smoothing(t *testing.T) {
	camera := new(mocks.CameraSvc)
	camera.On("Snapshot", mock.Anything).Return(visiontest.PNG(visiontest.Default(0).Render()), nil).Once()
	camera.On("Snapshot", mock.Anything).Return(visiontest.PNG(visiontest.Default(90).Render()), nil).Once()

	r := newTestReader(t, camera, &ConfigReader{Smoothing: 0.5})
	_ = r.RunCycle(context.Background())
	reading := r.RunCycle(context.Background())
	if reading.Value == nil {
		t.Fatalf("нет значения: %v", reading.Err)
	}
	// (1.5 + 2.5) / 2
	if math.Abs(*reading.Value-2.0) > 0.06 {
		t.Errorf("Value = %v, want 2.0 ± 0.06", *reading.Value)
	}
}

func TestReader_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	camera := new(mocks.CameraSvc)
	camera.On("Snapshot", mock.Anything).Run(func(mock.Arguments) { cancel() }).
		Return(visiontest.PNG(visiontest.Default(0).Render()), nil)

	reading := newTestReader(t, camera, nil).RunCycle(ctx)
	if reading.FailedStage != model.StageLocatingGauge {
		t.Errorf("FailedStage = %s, want %s", reading.FailedStage, model.StageLocatingGauge)
	}
	if errors.Cause(reading.Err) != context.Canceled {
		t.Errorf("Err = %v, want %v", reading.Err, context.Canceled)
	}
}

func TestReader_Panic(t *testing.T) {
	camera := new(mocks.CameraSvc)
	camera.On("Snapshot", mock.Anything).Run(func(mock.Arguments) { panic("обрыв драйвера") }).Return(nil, nil)

	reading := newTestReader(t, camera, nil).RunCycle(context.Background())
	if reading.Confidence != model.ConfidenceFailed || reading.FailedStage != model.StageCapturing {
		t.Errorf("Confidence = %s, FailedStage = %s", reading.Confidence, reading.FailedStage)
	}
}

func TestNewReader_SweepStartNormalized(t *testing.T) {
	info := testInfo()
	info.Calibration.SweepStart = 225 - 360
	camera := cameraWith(visiontest.PNG(visiontest.Default(0).Render()), nil)

	r := newTestReader(t, camera, &ConfigReader{Info: info})
	if got := r.Info().Calibration.SweepStart; got != 225 {
		t.Errorf("SweepStart = %v, want 225", got)
	}
	reading := r.RunCycle(context.Background())
	if reading.Value == nil || math.Abs(*reading.Value-1.5) > 0.06 {
		t.Errorf("Value = %v, want 1.5 ± 0.06: %s", reading.Value, reading.ErrorText())
	}
}

func TestNewReader(t *testing.T) {
	bad := testInfo()
	bad.Calibration.MaxValue = bad.Calibration.MinValue

	duplicate := testInfo()
	duplicate.Thresholds = append(duplicate.Thresholds, model.Threshold{Name: "warning", Value: 2})

	tests := []struct {
		name      string
		config    *ConfigReader
		wantCause error
		wantErr   bool
	}{
		{name: "корректный", config: &ConfigReader{Info: testInfo()}},
		{name: "без конфигурации", config: nil, wantErr: true},
		{name: "максимум не больше минимума", config: &ConfigReader{Info: bad}, wantErr: true, wantCause: model.ErrInvalidCalibration},
		{name: "повтор порога", config: &ConfigReader{Info: duplicate}, wantErr: true, wantCause: model.ErrInvalidCalibration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(new(mocks.CameraSvc), tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewReader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantCause != nil && errors.Cause(err) != tt.wantCause {
				t.Errorf("NewReader() cause = %v, want %v", errors.Cause(err), tt.wantCause)
			}
		})
	}
}
