package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kirsrus/gauge-reader/controller"
	"github.com/kirsrus/gauge-reader/controller/manager"
	readerCtlMod "github.com/kirsrus/gauge-reader/controller/reader"
	"github.com/kirsrus/gauge-reader/pkg/config"
	"github.com/kirsrus/gauge-reader/pkg/logger"
	"github.com/kirsrus/gauge-reader/pkg/metrics"
	"github.com/kirsrus/gauge-reader/service"
	cameraSvcMod "github.com/kirsrus/gauge-reader/service/camera"
	mqttSvcMod "github.com/kirsrus/gauge-reader/service/mqtt"
	webSvcMod "github.com/kirsrus/gauge-reader/service/web"
	dbStoreMod "github.com/kirsrus/gauge-reader/store/db"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	cfg *config.Config
	log *logrus.Logger
)

func init() {
	cfg = config.Get()
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.WarnLevel
	}
	log = logger.GetWithConfig(logger.Config{
		File:    filepath.Join(cfg.Log.Path, cfg.Log.Filename),
		Level:   level,
		Console: cfg.Log.Console,
	})
}

func main() {

	err := run()
	if err != nil {
		fmt.Printf("ОШИБКА: в процессе работы произошла ошибка: %v\n", err)
		fmt.Printf("Для подробностей смотри лог: %s\n", filepath.Join(cfg.Log.Path, cfg.Log.Filename))
		log.Fatal(errors.ErrorStack(err))
	}
}

func run() error {
	// Отлавливаем сигнал завершения работы программы
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Корректировка и проверка описаний до создания служб
	gauges, err := cfg.Gauges()
	if err != nil {
		return errors.Trace(err)
	}
	if len(gauges) == 0 {
		return errors.New("в конфигурации не описано ни одного манометра")
	}

	// region Настройка БД

	dbStore, err := dbStoreMod.NewDb(ctx, &dbStoreMod.ConfigDb{
		Log:             log,
		DbFile:          filepath.Join(cfg.Db.Path, cfg.Db.Filename),
		RootSnapshotDir: cfg.Images.Path,
		Gauges:          gauges,
	})
	if err != nil {
		return errors.Trace(err)
	}

	// endregion
	// region Инициализация манометров
	// Камера и контроллер снятия показаний на каждый манометр

	readers := make([]controller.ReaderCtl, 0, len(gauges))
	for _, info := range gauges {
		camera, err := cameraSvcMod.New(info.SnapshotURL, info.Username, info.Password, info.Timeout, log)
		if err != nil {
			return errors.Annotatef(err, "манометр %s", info.ID)
		}
		smoothing, keepLast := cfg.ReaderOptions(info.ID)
		reader, err := readerCtlMod.NewReader(camera, &readerCtlMod.ConfigReader{
			Log:               log,
			Info:              info,
			Params:            cfg.VisionParams(),
			Smoothing:         smoothing,
			KeepLastOnFailure: keepLast,
		})
		if err != nil {
			return errors.Annotatef(err, "манометр %s", info.ID)
		}
		readers = append(readers, reader)
	}

	// endregion
	// region Публикация в MQTT

	var publisher service.PublisherSvc
	if cfg.Mqtt.Enabled {
		publisher, err = mqttSvcMod.NewMqtt(&mqttSvcMod.ConfigMqtt{
			Log:             log,
			Broker:          cfg.Mqtt.Broker,
			ClientID:        cfg.Mqtt.ClientID,
			Username:        cfg.Mqtt.Username,
			Password:        cfg.Mqtt.Password,
			DiscoveryPrefix: cfg.Mqtt.DiscoveryPrefix,
			TopicPrefix:     cfg.Mqtt.TopicPrefix,
		})
		if err != nil {
			return errors.Trace(err)
		}
	}

	// endregion
	// region Метрики

	metricsSvc, err := metrics.NewMetrics(&metrics.ConfigMetrics{})
	if err != nil {
		return errors.Trace(err)
	}

	// endregion
	// region Менеджер управления всеми

	webSvc, err := webSvcMod.NewWeb(ctx, gauges, dbStore, &webSvcMod.ConfigWeb{
		Log:       log,
		WebPort:   cfg.Http.Port,
		AssetsDir: cfg.Http.AssetsDir,
	})
	if err != nil {
		return errors.Trace(err)
	}

	managerCtl, err := manager.NewManager(ctx, &manager.ConfigManager{
		Log:                log,
		Readers:            readers,
		WebSvc:             webSvc,
		DbStore:            dbStore,
		Publisher:          publisher,
		Observer:           metricsSvc,
		CycleTimeout:       time.Second * time.Duration(cfg.Gauge.Timeout),
		FailureLogInterval: time.Minute * time.Duration(cfg.Gauge.FailureLogInterval),
		CleanBasePeriod:    time.Hour * 24 * time.Duration(cfg.Db.ArchiveDays),
		CleanBaseInterval:  time.Minute * time.Duration(cfg.Db.CleanArchiveInterval),
		KeepSnapshots:      cfg.Images.KeepSnapshots,
	})
	if err != nil {
		return errors.Trace(err)
	}

	// endregion
	// region Контроллер WEB

	webSvc.Static("/")
	webSvc.GaugesApi("/api/gauges")
	webSvc.ReadingApi("/api/gauges/:id")
	webSvc.LogApi("/api/gauges/:id/log")
	webSvc.Refresh("/api/gauges/:id/refresh", managerCtl.Refresh)
	webSvc.SnapshotImage("/image/:name")
	webSvc.Feed("/feed")
	webSvc.Metrics("/metrics", metricsSvc.Handler())

	// endregion

	// Завершение любой из служб останавливает остальные
	g := new(errgroup.Group)
	g.Go(func() error {
		defer cancel()
		return errors.Trace(managerCtl.Serve())
	})
	g.Go(func() error {
		defer cancel()
		return errors.Trace(webSvc.Serve())
	})

	<-ctx.Done()
	log.Info("завершение работы программы")
	return errors.Trace(g.Wait())
}
