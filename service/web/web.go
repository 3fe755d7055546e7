package web

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kirsrus/gauge-reader/model"
	"github.com/kirsrus/gauge-reader/service"
	"github.com/kirsrus/gauge-reader/store"

	"github.com/gabriel-vasile/mimetype"
	"github.com/juju/errors"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/sirupsen/logrus"
)

const (
	waitRestartStartServer = 10 * time.Second
	waitShutdownServer     = 5 * time.Second
	webPort                = 80
	assetsDir              = "./assets/main"

	// Период истории показаний по умолчанию (дней)
	defaultLogDays = 1
	// Максимальный период истории показаний (дней)
	maxLogDays = 366
)

// ConfigWeb конфигурация структуры Web
type ConfigWeb struct {
	Log *logrus.Logger

	WebPort   uint
	AssetsDir string
}

// Web служба WEB-сервисов. Инициализируется через NewWeb
type Web struct {
	ctx context.Context
	log *logrus.Entry
	e   *echo.Echo

	dbStore store.DbStore
	gauges  []model.GaugeInfo

	webPort   uint
	assetsDir string

	// Подписчики канала новых показаний
	feedSubscribePool *sync.Map
}

// Описание манометра для WEB-интерфейса (без учётных данных камеры)
type gaugeView struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Unit        string               `json:"unit"`
	Interval    string               `json:"interval"`
	Calibration model.Calibration    `json:"calibration"`
	Thresholds  model.ThresholdSet   `json:"thresholds"`
	Last        *model.ReadingChange `json:"last,omitempty"`
}

// NewWeb конструктор структкуры Web
func NewWeb(ctx context.Context, gauges []model.GaugeInfo, dbStore store.DbStore, config *ConfigWeb) (service.WebSvc, error) {
	if config == nil {
		return nil, errors.New("не установлена конфигурация")
	}
	if config.Log == nil {
		config.Log = logrus.New()
		config.Log.Out = ioutil.Discard
	}
	if dbStore == nil {
		return nil, errors.New("не передан dbStore")
	}
	web := Web{
		ctx: ctx,
		log: config.Log.WithFields(map[string]interface{}{
			"module": "web",
			"scope":  "service",
		}),
		e: echo.New(),

		dbStore: dbStore,
		gauges:  gauges,

		webPort:   webPort,
		assetsDir: assetsDir,

		feedSubscribePool: new(sync.Map),
	}

	if config.WebPort != 0 {
		web.webPort = config.WebPort
	}
	if config.AssetsDir != "" {
		web.assetsDir = config.AssetsDir
	}

	// Настойка WEB-сервера
	web.e.HideBanner = true
	web.e.HidePort = true
	web.e.Use(middleware.Recover())
	web.e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	return &web, nil
}

// Serve запуск HTTP-сервера. При неожиданном завершении сервер перезапускается
// до отмены контекста
func (m *Web) Serve() error {
	go func() {
		<-m.ctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), waitShutdownServer)
		defer cancel()
		if err := m.e.Shutdown(ctx); err != nil {
			m.log.Warnf("ошибка остановки HTTP-сервера: %s", err)
		}
	}()

	for {
		m.log.Infof("старт HTTP-сервера на порту :%d", m.webPort)
		err := m.e.Start(fmt.Sprintf(":%d", m.webPort))
		if m.ctx.Err() != nil {
			m.log.Info("HTTP-сервер остановлен")
			return nil
		}
		m.log.Errorf("сервер неожиданно завершил работу: %s", err)
		select {
		case <-m.ctx.Done():
			return nil
		case <-time.After(waitRestartStartServer):
		}
	}
}

// Поиск манометра по идентификатору
func (m *Web) gauge(id string) (model.GaugeInfo, bool) {
	for _, g := range m.gauges {
		if g.ID == id {
			return g, true
		}
	}
	return model.GaugeInfo{}, false
}

// Последнее показание манометра для WEB-интерфейса. nil, если показаний ещё нет
func (m *Web) lastReading(info model.GaugeInfo) (*model.ReadingChange, error) {
	reading, err := m.dbStore.LastReading(info.ID)
	if err != nil {
		if m.dbStore.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Trace(err)
	}
	change := model.NewReadingChange(info, *reading, "")
	return &change, nil
}

// GaugesApi список манометров с последними показаниями
func (m *Web) GaugesApi(path string) {
	m.e.GET(path, func(c echo.Context) error {
		result := make([]gaugeView, 0, len(m.gauges))
		for _, g := range m.gauges {
			last, err := m.lastReading(g)
			if err != nil {
				m.log.Warnf("ошибка получения показания %s: %s", g.ID, err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"message": "ошибка: " + err.Error()})
			}
			result = append(result, gaugeView{
				ID:          g.ID,
				Name:        g.Name,
				Unit:        g.Unit,
				Interval:    g.Interval.String(),
				Calibration: g.Calibration,
				Thresholds:  g.Thresholds,
				Last:        last,
			})
		}
		return c.JSON(http.StatusOK, result)
	})
}

// ReadingApi последнее показание манометра :id
func (m *Web) ReadingApi(path string) {
	m.e.GET(path, func(c echo.Context) error {
		info, ok := m.gauge(c.Param("id"))
		if !ok {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "манометр не найден"})
		}
		last, err := m.lastReading(info)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "ошибка: " + err.Error()})
		}
		if last == nil {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "показаний ещё нет"})
		}
		return c.JSON(http.StatusOK, last)
	})
}

// LogApi история показаний манометра :id. Параметры запроса: days, offset, compact
func (m *Web) LogApi(path string) {
	m.e.GET(path, func(c echo.Context) error {
		id := c.Param("id")
		if _, ok := m.gauge(id); !ok {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "манометр не найден"})
		}
		days, err := queryUint(c, "days", defaultLogDays)
		if err != nil || days == 0 || days > maxLogDays {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": fmt.Sprintf("некорректный период: %s", c.QueryParam("days"))})
		}
		offset, err := queryUint(c, "offset", 0)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": fmt.Sprintf("некорректное смещение: %s", c.QueryParam("offset"))})
		}
		compact := c.QueryParam("compact") == "true" || c.QueryParam("compact") == "1"

		log, err := m.dbStore.GaugeLog(id, days, offset, compact)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "ошибка: " + err.Error()})
		}
		return c.JSON(http.StatusOK, log)
	})
}

// Беззнаковый параметр запроса name или def, если параметр не передан
func queryUint(c echo.Context, name string, def uint) (uint, error) {
	s := c.QueryParam(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return uint(v), nil
}

// SnapshotImage сохранённый снимок по имени в параметре :name
func (m *Web) SnapshotImage(path string) {
	m.e.GET(path, func(c echo.Context) error {
		name := c.Param("name")
		if name == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "не передано имя файла снимка"})
		}
		content, err := m.dbStore.SnapshotImage(name)
		if err != nil {
			if m.dbStore.IsNotFound(err) {
				return c.JSON(http.StatusNotFound, map[string]string{"message": "снимок не найден"})
			}
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "ошибка: " + err.Error()})
		}
		mime := mimetype.Detect(content).String()
		return c.Blob(http.StatusOK, mime, content)
	})
}

// Metrics метрики Prometheus
func (m *Web) Metrics(path string, handler http.Handler) {
	m.e.GET(path, echo.WrapHandler(handler))
}

// Refresh внеочередное снятие показаний манометра :id
func (m *Web) Refresh(path string, refresh func(gaugeID string) error) {
	m.e.POST(path, func(c echo.Context) error {
		id := c.Param("id")
		if err := refresh(id); err != nil {
			if errors.IsNotFound(err) {
				return c.JSON(http.StatusNotFound, map[string]string{"message": "манометр не найден"})
			}
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "ошибка: " + err.Error()})
		}
		return c.JSON(http.StatusAccepted, map[string]string{"message": "запрошено снятие показаний"})
	})
}

// Static статический контент интерфейса
func (m *Web) Static(path string) {
	m.e.Static(path, m.assetsDir)
}
