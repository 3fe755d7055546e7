package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kirsrus/gauge-reader/model"
	"github.com/kirsrus/gauge-reader/pkg/vision/visiontest"
	"github.com/kirsrus/gauge-reader/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testGauge = model.GaugeInfo{
	ID:          "boiler",
	Name:        "Котёл",
	Unit:        "bar",
	Calibration: model.Calibration{MinValue: 0, MaxValue: 3, SweepStart: 225, SweepExtent: 270},
}

func newTestDb(t *testing.T, dir string) store.DbStore {
	t.Helper()
	db, err := NewDb(context.Background(), &ConfigDb{
		DbFile:          filepath.Join(dir, "test.sqlite"),
		RootSnapshotDir: filepath.Join(dir, "snapshots"),
		Gauges:          []model.GaugeInfo{testGauge},
	})
	require.NoError(t, err)
	return db
}

func testReading(create time.Time, value float64, alarms map[string]bool) model.Reading {
	return model.Reading{
		ID:         create.Format(time.RFC3339Nano),
		GaugeID:    testGauge.ID,
		CreateAt:   create,
		Angle:      10,
		Value:      &value,
		Alarms:     alarms,
		Confidence: model.ConfidenceHigh,
		Stage:      model.StageDone,
	}
}

func TestNewDb(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		config  *ConfigDb
		wantErr bool
	}{
		{name: "корректная", config: &ConfigDb{DbFile: filepath.Join(dir, "a.sqlite"), RootSnapshotDir: dir}},
		{name: "без конфигурации", wantErr: true},
		{name: "без файла БД", config: &ConfigDb{RootSnapshotDir: dir}, wantErr: true},
		{name: "без директории снимков", config: &ConfigDb{DbFile: filepath.Join(dir, "b.sqlite")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDb(context.Background(), tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewDb() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDb_SnapshotImage(t *testing.T) {
	db := newTestDb(t, t.TempDir())
	content := visiontest.PNG(visiontest.Default(0).Render())
	create := time.Date(2021, 3, 14, 9, 26, 53, 0, time.Local)

	name, err := db.SetSnapshotImage(create, "boiler", content)
	require.NoError(t, err)
	assert.Equal(t, "2021.03.14_09.26.53_boiler.png", *name)

	got, err := db.SnapshotImage(*name)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = db.SnapshotImage("2021.03.14_10.00.00_boiler.png")
	assert.True(t, db.IsNotFound(err), "отсутствующий снимок: %v", err)

	for _, bad := range []string{"../../etc/passwd", "2021.03.14_09.26.53_../x.png", "snapshot.png", ""} {
		_, err = db.SnapshotImage(bad)
		assert.Error(t, err, bad)
	}

	_, err = db.SetSnapshotImage(create, "boiler", nil)
	assert.Error(t, err)
}

func TestDb_LastReading(t *testing.T) {
	dir := t.TempDir()
	db := newTestDb(t, dir)

	_, err := db.LastReading("boiler")
	assert.True(t, db.IsNotFound(err), "пустая БД: %v", err)

	now := time.Now()
	require.NoError(t, db.SetReadingLog(testReading(now.Add(-time.Minute), 1.2, map[string]bool{"warning": false}), ""))
	require.NoError(t, db.SetReadingLog(testReading(now, 2.1, map[string]bool{"warning": true}), "snap.png"))

	last, err := db.LastReading("boiler")
	require.NoError(t, err)
	assert.Equal(t, 2.1, *last.Value)
	assert.Equal(t, map[string]bool{"warning": true}, last.Alarms)

	// Без кэша показание читается из БД
	last, err = newTestDb(t, dir).LastReading("boiler")
	require.NoError(t, err)
	assert.Equal(t, 2.1, *last.Value)
	assert.Equal(t, model.StageDone, last.Stage)
}

func TestDb_SetReadingLogFailed(t *testing.T) {
	db := newTestDb(t, t.TempDir())
	reading := model.Reading{
		ID:          "failed-1",
		GaugeID:     "boiler",
		CreateAt:    time.Now(),
		Alarms:      map[string]bool{},
		Confidence:  model.ConfidenceFailed,
		Stage:       model.StageFailed,
		FailedStage: model.StageCapturing,
		Err:         errors.New("камера недоступна"),
	}
	require.NoError(t, db.SetReadingLog(reading, ""))

	last, err := db.LastReading("boiler")
	require.NoError(t, err)
	assert.Nil(t, last.Value)
	assert.Equal(t, model.StageCapturing, last.FailedStage)
	assert.Equal(t, "камера недоступна", last.ErrorText())
}

func TestDb_GaugeLog(t *testing.T) {
	db := newTestDb(t, t.TempDir())
	today := time.Now().Add(-time.Hour)
	yesterday := today.Add(-24 * time.Hour)

	require.NoError(t, db.SetReadingLog(testReading(yesterday, 1.0, map[string]bool{"warning": false}), ""))
	require.NoError(t, db.SetReadingLog(testReading(yesterday.Add(time.Minute), 2.0, map[string]bool{"warning": true}), ""))
	require.NoError(t, db.SetReadingLog(testReading(today, 1.5, map[string]bool{"warning": false}), ""))
	failed := testReading(today.Add(time.Minute), 0, nil)
	failed.Value = nil
	failed.Confidence = model.ConfidenceFailed
	require.NoError(t, db.SetReadingLog(failed, ""))

	log, err := db.GaugeLog("boiler", 7, 0, false)
	require.NoError(t, err)
	require.Len(t, log, 4)
	assert.Equal(t, 1.0, *log[0].Value)
	assert.Equal(t, "boiler", log[0].Gauge.ID)
	assert.Nil(t, log[3].Value)

	compact, err := db.GaugeLog("boiler", 7, 0, true)
	require.NoError(t, err)
	require.Len(t, compact, 2)
	assert.Equal(t, 1.0, compact[0].ValueMin)
	assert.Equal(t, 2.0, compact[0].ValueMax)
	assert.True(t, compact[0].Alarms["warning"])
	assert.Equal(t, 1.5, compact[1].ValueMin)
	assert.False(t, compact[1].Alarms["warning"])

	// Смещение за пределы записей
	old, err := db.GaugeLog("boiler", 7, 30, false)
	require.NoError(t, err)
	assert.Empty(t, old)

	_, err = db.GaugeLog("нет", 7, 0, false)
	assert.True(t, db.IsNotFound(err))
}

func TestDb_Clean(t *testing.T) {
	dir := t.TempDir()
	db := newTestDb(t, dir)
	content := visiontest.PNG(visiontest.Default(0).Render())

	now := time.Now()
	old := now.Add(-40 * 24 * time.Hour)
	require.NoError(t, db.SetReadingLog(testReading(old, 1, nil), ""))
	require.NoError(t, db.SetReadingLog(testReading(now, 2, nil), ""))
	_, err := db.SetSnapshotImage(old, "boiler", content)
	require.NoError(t, err)
	recent, err := db.SetSnapshotImage(now, "boiler", content)
	require.NoError(t, err)

	require.NoError(t, db.Clean(30))

	log, err := db.GaugeLog("boiler", 60, 0, false)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, 2.0, *log[0].Value)

	_, err = os.Stat(filepath.Join(dir, "snapshots", old.Format(dirDateFormat)))
	assert.True(t, os.IsNotExist(err), "директория старых снимков не удалена")
	_, err = db.SnapshotImage(*recent)
	assert.NoError(t, err)

	assert.Error(t, db.Clean(0))
}
