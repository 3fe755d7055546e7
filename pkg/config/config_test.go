package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kirsrus/gauge-reader/model"
	"github.com/kirsrus/gauge-reader/pkg/validator"

	"github.com/k0kubun/pp"
	"github.com/stretchr/testify/assert"
)

const testConfig = `
log:
  level: debug
http:
  port: 8090
gauge:
  info:
    - id: boiler
      name: Котёл
      snapshoturl: http://10.0.0.5/snapshot.jpg
      interval: 15
      smoothing: 0.5
      alarms:
        - name: warning
          threshold: 1.8
        - threshold: 2.5
    - id: water
      name: Водопровод
      snapshoturl: file:///var/lib/cam/water.jpg
      minvalue: -1
      maxvalue: 10
      sweepstart: -180
      sweepextent: 180
    - id: vacuum
      name: Вакуумметр
      snapshoturl: http://10.0.0.6/snapshot.jpg
      interval: 1
      timeout: 3
      unit: kPa
      minvalue: -100
      maxvalue: 0
      sweepstart: 0
`

func loadTest(t *testing.T) *Config {
	t.Helper()
	return loadYaml(t, testConfig)
}

func loadYaml(t *testing.T, content string) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	var cfg Config
	if err := Load(&cfg, path); err != nil {
		t.Fatal(err)
	}
	return &cfg
}

func TestLoad(t *testing.T) {
	cfg := loadTest(t)
	if testing.Verbose() {
		pp.Println(cfg.Gauge)
	}

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, uint(8090), cfg.Http.Port)
	assert.Equal(t, 30, cfg.Db.ArchiveDays)
	assert.Equal(t, "homeassistant", cfg.Mqtt.DiscoveryPrefix)
	assert.Len(t, cfg.Gauge.Info, 3)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("GAUGE_HTTP_PORT", "9000")
	cfg := loadTest(t)
	assert.Equal(t, uint(9000), cfg.Http.Port)
}

func TestConfig_GaugeInfos(t *testing.T) {
	infos := loadTest(t).GaugeInfos()
	if !assert.Len(t, infos, 3) {
		return
	}

	boiler := infos[0]
	assert.Equal(t, "boiler", boiler.ID)
	assert.Equal(t, 15*time.Minute, boiler.Interval)
	assert.Equal(t, 10*time.Second, boiler.Timeout)
	assert.Equal(t, "bar", boiler.Unit)
	assert.Equal(t, "pressure", boiler.DeviceClass)
	assert.Equal(t, model.Calibration{MinValue: 0, MaxValue: 3, SweepStart: 225, SweepExtent: 270}, boiler.Calibration)
	assert.Equal(t, model.ThresholdSet{{Name: "warning", Value: 1.8}, {Name: "alarm_2", Value: 2.5}}, boiler.Thresholds)

	water := infos[1]
	assert.Equal(t, 15*time.Minute, water.Interval)
	assert.Equal(t, model.Calibration{MinValue: -1, MaxValue: 10, SweepStart: 180, SweepExtent: 180}, water.Calibration)
	assert.Empty(t, water.Thresholds)

	// Явные нули не заменяются значениями по умолчанию
	vacuum := infos[2]
	assert.Equal(t, time.Minute, vacuum.Interval)
	assert.Equal(t, 3*time.Second, vacuum.Timeout)
	assert.Equal(t, "kPa", vacuum.Unit)
	assert.Equal(t, model.Calibration{MinValue: -100, MaxValue: 0, SweepStart: 0, SweepExtent: 270}, vacuum.Calibration)
}

func TestConfig_GaugeInfosMinimal(t *testing.T) {
	minimal := `
gauge:
  info:
    - id: boiler
      name: Котёл
      snapshoturl: http://10.0.0.5/snapshot.jpg
`
	infos := loadYaml(t, minimal).GaugeInfos()
	if !assert.Len(t, infos, 1) {
		return
	}
	info := infos[0]
	assert.Equal(t, 15*time.Minute, info.Interval)
	assert.Equal(t, 10*time.Second, info.Timeout)
	assert.Equal(t, model.Calibration{MinValue: 0, MaxValue: 3, SweepStart: 225, SweepExtent: 270}, info.Calibration)
	assert.NoError(t, info.Calibration.Validate())
	assert.NoError(t, validator.Get().ValidateWithConform(&info))
}

func TestConfig_Gauges(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantID  string
		wantErr bool
	}{
		{
			name: "пробелы вокруг полей",
			content: `
gauge:
  info:
    - id: "  boiler "
      name: " Котёл"
      snapshoturl: " http://10.0.0.5/snapshot.jpg "
      smoothing: 0.3
`,
			wantID: "boiler",
		},
		{
			name: "повтор идентификатора после trim",
			content: `
gauge:
  info:
    - id: boiler
      name: Котёл
      snapshoturl: http://10.0.0.5/snapshot.jpg
    - id: " boiler"
      name: Котёл 2
      snapshoturl: http://10.0.0.6/snapshot.jpg
`,
			wantErr: true,
		},
		{
			name: "интервал 5 минут",
			content: `
gauge:
  info:
    - id: boiler
      name: Котёл
      snapshoturl: http://10.0.0.5/snapshot.jpg
      interval: 5
`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadYaml(t, tt.content)
			gauges, err := cfg.Gauges()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Gauges() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			assert.Equal(t, tt.wantID, gauges[0].ID)
			assert.Equal(t, "Котёл", gauges[0].Name)
			assert.Equal(t, "http://10.0.0.5/snapshot.jpg", gauges[0].SnapshotURL)
			smoothing, _ := cfg.ReaderOptions(gauges[0].ID)
			assert.Equal(t, 0.3, smoothing)
		})
	}
}

func TestConfig_ReaderOptions(t *testing.T) {
	cfg := loadTest(t)
	smoothing, keepLast := cfg.ReaderOptions("boiler")
	assert.Equal(t, 0.5, smoothing)
	assert.False(t, keepLast)

	smoothing, _ = cfg.ReaderOptions("нет такого")
	assert.Zero(t, smoothing)
}
