package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirsrus/gauge-reader/model"
	"github.com/kirsrus/gauge-reader/store/mocks"

	"github.com/gorilla/websocket"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testGauges = []model.GaugeInfo{
	{
		ID:          "boiler",
		Name:        "Котёл",
		Password:    "secret",
		Interval:    time.Minute,
		Unit:        "bar",
		Calibration: model.Calibration{MinValue: 0, MaxValue: 3, SweepStart: 225, SweepExtent: 270},
		Thresholds:  model.ThresholdSet{{Name: "warning", Value: 1.8}},
	},
	{ID: "water", Name: "Водопровод", Interval: 15 * time.Minute, Unit: "bar"},
}

func newTestWeb(t *testing.T, ctx context.Context, db *mocks.DbStore) *Web {
	t.Helper()
	db.On("IsNotFound", mock.Anything).Return(func(err error) bool { return errors.IsNotFound(err) }).Maybe()
	svc, err := NewWeb(ctx, testGauges, db, &ConfigWeb{})
	require.NoError(t, err)
	w := svc.(*Web)
	w.GaugesApi("/api/gauges")
	w.ReadingApi("/api/gauges/:id")
	w.LogApi("/api/gauges/:id/log")
	w.SnapshotImage("/image/:name")
	w.Refresh("/api/gauges/:id/refresh", func(id string) error {
		if id != "boiler" {
			return errors.NotFoundf("манометр %s", id)
		}
		return nil
	})
	w.Metrics("/metrics", http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte("gauge_reader_value 1\n"))
	}))
	w.Feed("/feed")
	return w
}

func serve(w *Web, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	w.e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestWeb_GaugesApi(t *testing.T) {
	value := 1.25
	db := new(mocks.DbStore)
	db.On("LastReading", "boiler").Return(&model.Reading{GaugeID: "boiler", Value: &value, Confidence: model.ConfidenceHigh}, nil)
	db.On("LastReading", "water").Return(nil, errors.NotFoundf("показание"))
	w := newTestWeb(t, context.Background(), db)

	rec := serve(w, http.MethodGet, "/api/gauges")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")

	var got []gaugeView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Last)
	assert.Equal(t, 1.25, *got[0].Last.Value)
	assert.Equal(t, "bar", got[0].Last.Unit)
	assert.Nil(t, got[1].Last)
	assert.Equal(t, "15m0s", got[1].Interval)
}

func TestWeb_ReadingApi(t *testing.T) {
	value := 2.0
	db := new(mocks.DbStore)
	db.On("LastReading", "boiler").Return(&model.Reading{GaugeID: "boiler", Value: &value}, nil)
	db.On("LastReading", "water").Return(nil, errors.NotFoundf("показание"))
	w := newTestWeb(t, context.Background(), db)

	tests := []struct {
		name     string
		target   string
		wantCode int
	}{
		{name: "есть показание", target: "/api/gauges/boiler", wantCode: http.StatusOK},
		{name: "нет показаний", target: "/api/gauges/water", wantCode: http.StatusNotFound},
		{name: "неизвестный манометр", target: "/api/gauges/steam", wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, serve(w, http.MethodGet, tt.target).Code)
		})
	}
}

func TestWeb_LogApi(t *testing.T) {
	db := new(mocks.DbStore)
	db.On("GaugeLog", "boiler", uint(1), uint(0), false).Return([]model.ReadingMetric{{Angle: 10}}, nil)
	db.On("GaugeLog", "boiler", uint(7), uint(7), true).Return([]model.ReadingMetric{}, nil)
	w := newTestWeb(t, context.Background(), db)

	tests := []struct {
		name     string
		target   string
		wantCode int
	}{
		{name: "по умолчанию", target: "/api/gauges/boiler/log", wantCode: http.StatusOK},
		{name: "сжатый со смещением", target: "/api/gauges/boiler/log?days=7&offset=7&compact=true", wantCode: http.StatusOK},
		{name: "некорректный период", target: "/api/gauges/boiler/log?days=-1", wantCode: http.StatusBadRequest},
		{name: "нулевой период", target: "/api/gauges/boiler/log?days=0", wantCode: http.StatusBadRequest},
		{name: "некорректное смещение", target: "/api/gauges/boiler/log?offset=x", wantCode: http.StatusBadRequest},
		{name: "неизвестный манометр", target: "/api/gauges/steam/log", wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, serve(w, http.MethodGet, tt.target).Code)
		})
	}
	db.AssertExpectations(t)
}

func TestWeb_SnapshotImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")
	db := new(mocks.DbStore)
	db.On("SnapshotImage", "2021.03.14_09.26.53_boiler.png").Return(png, nil)
	db.On("SnapshotImage", "2021.03.14_09.27.53_boiler.png").Return(nil, errors.NotFoundf("файл"))
	db.On("SnapshotImage", "bad").Return(nil, errors.NotValidf("имя"))
	w := newTestWeb(t, context.Background(), db)

	rec := serve(w, http.MethodGet, "/image/2021.03.14_09.26.53_boiler.png")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, png, rec.Body.Bytes())

	assert.Equal(t, http.StatusNotFound, serve(w, http.MethodGet, "/image/2021.03.14_09.27.53_boiler.png").Code)
	assert.Equal(t, http.StatusBadRequest, serve(w, http.MethodGet, "/image/bad").Code)
}

func TestWeb_RefreshAndMetrics(t *testing.T) {
	w := newTestWeb(t, context.Background(), new(mocks.DbStore))

	assert.Equal(t, http.StatusAccepted, serve(w, http.MethodPost, "/api/gauges/boiler/refresh").Code)
	assert.Equal(t, http.StatusNotFound, serve(w, http.MethodPost, "/api/gauges/steam/refresh").Code)

	rec := serve(w, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gauge_reader_value")
}

func TestWeb_Feed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := newTestWeb(t, ctx, new(mocks.DbStore))
	server := httptest.NewServer(w.e)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/feed", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	// Ждём регистрации подписчика
	subscribed := func() bool {
		n := 0
		w.feedSubscribePool.Range(func(_, _ interface{}) bool { n++; return true })
		return n == 1
	}
	require.Eventually(t, subscribed, time.Second, 10*time.Millisecond)

	value := 1.5
	w.ReadingChanged(model.ReadingChange{GaugeID: "boiler", Value: &value, Confidence: model.ConfidenceHigh})

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var got model.ReadingChange
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "boiler", got.GaugeID)
	assert.Equal(t, 1.5, *got.Value)

	// После закрытия клиентом подписчик удаляется
	_ = conn.Close()
	assert.Eventually(t, func() bool { return !subscribed() }, time.Second, 10*time.Millisecond)
}

func TestNewWeb(t *testing.T) {
	_, err := NewWeb(context.Background(), testGauges, nil, &ConfigWeb{})
	assert.Error(t, err)
	_, err = NewWeb(context.Background(), testGauges, new(mocks.DbStore), nil)
	assert.Error(t, err)
}
