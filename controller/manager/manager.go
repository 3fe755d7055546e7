package manager

import (
	"context"
	"io/ioutil"
	"math"
	"sync"
	"time"

	"github.com/kirsrus/gauge-reader/controller"
	"github.com/kirsrus/gauge-reader/model"
	"github.com/kirsrus/gauge-reader/service"
	"github.com/kirsrus/gauge-reader/store"

	"github.com/juju/errors"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	cycleTimeout       = 20 * time.Second
	defaultInterval    = 15 * time.Minute
	failureLogInterval = time.Hour
	cleanBasePeriod    = time.Hour * 24 * 30
	cleanBaseInterval  = time.Minute * 30
)

// CycleObserver учёт завершённых циклов (метрики)
type CycleObserver interface {
	ObserveCycle(info model.GaugeInfo, reading model.Reading, duration time.Duration)
}

// ConfigManager конфигурация Manager
type ConfigManager struct {
	Log *logrus.Logger

	Readers []controller.ReaderCtl

	WebSvc  service.WebSvc
	DbStore store.DbStore
	// Необязательные
	Publisher service.PublisherSvc
	Observer  CycleObserver

	CycleTimeout       time.Duration
	FailureLogInterval time.Duration
	CleanBasePeriod    time.Duration
	CleanBaseInterval  time.Duration
	// Сохранять снимок каждого цикла
	KeepSnapshots bool
}

// Manager основной менеджер работы со всеми сервисами. Инициируется через NewManager
type Manager struct {
	ctx context.Context
	log *logrus.Entry

	readers []controller.ReaderCtl
	// Запросы внеочередного цикла по идентификатору манометра
	triggers map[string]chan struct{}

	webSvc    service.WebSvc
	dbStore   store.DbStore
	publisher service.PublisherSvc
	observer  CycleObserver

	cycleTimeout       time.Duration
	failureLogInterval time.Duration
	cleanBasePeriod    time.Duration
	cleanBaseInterval  time.Duration
	keepSnapshots      bool

	// Манометры в сбое, о котором уже записано в лог
	failureLog *cache.Cache

	alarmsMu sync.Mutex
	alarms   map[string]map[string]bool
}

// NewManager конструктор Manager
func NewManager(ctx context.Context, config *ConfigManager) (*Manager, error) {
	if config == nil {
		return nil, errors.New("не передана конфигурация")
	}
	if config.Log == nil {
		config.Log = logrus.New()
		config.Log.Out = ioutil.Discard
	}
	if len(config.Readers) == 0 {
		return nil, errors.New("не передано ни одного манометра")
	}
	if config.WebSvc == nil {
		return nil, errors.New("не передан сервис WEB")
	}
	if config.DbStore == nil {
		return nil, errors.New("не передан сервис базы данных")
	}

	manager := Manager{
		ctx: ctx,
		log: config.Log.WithFields(map[string]interface{}{
			"module": "manager",
			"scope":  "controller",
		}),
		readers:  config.Readers,
		triggers: make(map[string]chan struct{}, len(config.Readers)),

		webSvc:    config.WebSvc,
		dbStore:   config.DbStore,
		publisher: config.Publisher,
		observer:  config.Observer,

		cycleTimeout:       cycleTimeout,
		failureLogInterval: failureLogInterval,
		cleanBasePeriod:    cleanBasePeriod,
		cleanBaseInterval:  cleanBaseInterval,
		keepSnapshots:      config.KeepSnapshots,

		alarms: make(map[string]map[string]bool),
	}
	if config.CycleTimeout != 0 {
		manager.cycleTimeout = config.CycleTimeout
	}
	if config.FailureLogInterval != 0 {
		manager.failureLogInterval = config.FailureLogInterval
	}
	if config.CleanBasePeriod != 0 {
		manager.cleanBasePeriod = config.CleanBasePeriod
	}
	if config.CleanBaseInterval != 0 {
		manager.cleanBaseInterval = config.CleanBaseInterval
	}
	manager.failureLog = cache.New(manager.failureLogInterval, manager.failureLogInterval)

	for _, r := range config.Readers {
		id := r.Info().ID
		if _, ok := manager.triggers[id]; ok {
			return nil, errors.Errorf("манометр %s описан дважды", id)
		}
		manager.triggers[id] = make(chan struct{}, 1)
	}

	manager.configToLog()

	return &manager, nil
}

// Вывести значения конфигурациии в лог
func (m *Manager) configToLog() {
	m.log.Debugf("gauges: %d", len(m.readers))
	m.log.Debugf("cycleTimeout: %s", m.cycleTimeout)
	m.log.Debugf("failureLogInterval: %s", m.failureLogInterval)
	m.log.Debugf("cleanBasePeriod: %s", m.cleanBasePeriod)
	m.log.Debugf("cleanBaseInterval: %s", m.cleanBaseInterval)
	m.log.Debugf("keepSnapshots: %v", m.keepSnapshots)
}

// Serve опрос манометров по расписанию до отмены контекста
func (m *Manager) Serve() error {
	if m.publisher != nil {
		for _, r := range m.readers {
			if err := m.publisher.Announce(r.Info()); err != nil {
				m.log.Warn(err)
			}
		}
		defer m.publisher.Close()
	}

	g, ctx := errgroup.WithContext(m.ctx)

	// Опрос каждого манометра в своём цикле
	for _, r := range m.readers {
		reader := r
		g.Go(func() error {
			m.poll(ctx, reader)
			return nil
		})
	}

	// Запуск хоускеппера для очистки базы данных от старых записей
	g.Go(func() error {
		days := int(math.Round(m.cleanBasePeriod.Hours() / 24))
		for {
			if err := m.dbStore.Clean(days); err != nil {
				m.log.Warnf("ошибка очистки архива: %s", err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(m.cleanBaseInterval):
			}
		}
	})

	return errors.Trace(g.Wait())
}

// Refresh внеочередной цикл манометра gaugeID. Если цикл уже запрошен, повторный запрос игнорируется
func (m *Manager) Refresh(gaugeID string) error {
	trigger, ok := m.triggers[gaugeID]
	if !ok {
		return errors.NotFoundf("манометр %s", gaugeID)
	}
	select {
	case trigger <- struct{}{}:
		m.log.Debugf("запрошен внеочередной цикл %s", gaugeID)
	default:
	}
	return nil
}

// Циклы одного манометра: первый сразу, далее по интервалу или по запросу
func (m *Manager) poll(ctx context.Context, reader controller.ReaderCtl) {
	info := reader.Info()
	interval := info.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.log.Infof("опрос манометра %s (%s) каждые %s", info.ID, info.Name, interval)
	for {
		m.cycle(ctx, reader)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-m.triggers[info.ID]:
		}
	}
}

// Один цикл манометра с сохранением и рассылкой результата
func (m *Manager) cycle(ctx context.Context, reader controller.ReaderCtl) {
	info := reader.Info()
	start := time.Now()

	cctx, cancel := context.WithTimeout(ctx, m.cycleTimeout)
	reading := reader.RunCycle(cctx)
	cancel()
	if ctx.Err() != nil && reading.Failed() {
		// Остановка программы, а не сбой манометра
		return
	}
	m.logOutcome(info, reading)

	// Сохраняем снимок и показание. Сбой хранилища не должен мешать рассылке
	imageName := ""
	if m.keepSnapshots && len(reading.Image) > 0 {
		name, err := m.dbStore.SetSnapshotImage(reading.CreateAt, info.ID, reading.Image)
		if err != nil {
			m.log.Warnf("ошибка сохранения снимка %s: %s", info.ID, err)
		} else {
			imageName = *name
		}
	}
	if err := m.dbStore.SetReadingLog(reading, imageName); err != nil {
		m.log.Errorf("ошибка записи показания %s: %s", info.ID, err)
	}

	m.webSvc.ReadingChanged(model.NewReadingChange(info, reading, imageName))
	if m.publisher != nil {
		if err := m.publisher.Publish(info, reading); err != nil {
			m.log.Warnf("ошибка публикации показания %s: %s", info.ID, err)
		}
	}
	if m.observer != nil {
		m.observer.ObserveCycle(info, reading, time.Since(start))
	}
}

// Запись результата цикла в лог. О продолжающемся сбое пишется не чаще failureLogInterval
func (m *Manager) logOutcome(info model.GaugeInfo, reading model.Reading) {
	if reading.Failed() {
		if err := m.failureLog.Add(info.ID, reading.FailedStage, cache.DefaultExpiration); err == nil {
			m.log.Warnf("манометр %s: сбой на этапе %s: %s", info.ID, reading.FailedStage, reading.ErrorText())
		} else {
			m.log.Debugf("манометр %s: сбой на этапе %s: %s", info.ID, reading.FailedStage, reading.ErrorText())
		}
		return
	}
	if _, found := m.failureLog.Get(info.ID); found {
		m.failureLog.Delete(info.ID)
		m.log.Infof("манометр %s: показания восстановлены", info.ID)
	}
	if reading.Confidence == model.ConfidenceLow {
		m.log.Debugf("манометр %s: недостоверное показание %v", info.ID, *reading.Value)
	}

	// Изменения состояния тревог
	m.alarmsMu.Lock()
	defer m.alarmsMu.Unlock()
	prev := m.alarms[info.ID]
	for name, on := range reading.Alarms {
		switch {
		case on && !prev[name]:
			m.log.Warnf("манометр %s: тревога %s, значение %v %s", info.ID, name, *reading.Value, info.Unit)
		case !on && prev[name]:
			m.log.Infof("манометр %s: тревога %s снята", info.ID, name)
		}
	}
	m.alarms[info.ID] = reading.Alarms
}
