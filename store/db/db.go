package db

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/kirsrus/gauge-reader/model"
	"github.com/kirsrus/gauge-reader/pkg/tool"
	"github.com/kirsrus/gauge-reader/store"

	"github.com/gabriel-vasile/mimetype"
	"github.com/juju/errors"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const (
	cacheDuration = 10 * time.Minute
	cacheCleared  = time.Hour

	dirDateFormat  = "2006.01.02"
	fileDateFormat = "2006.01.02_15.04.05"
)

// Имя файла снимка: 2020.12.13_13.27.28_boiler.jpg
var reSnapshotName = regexp.MustCompile(`^(\d{4}\.\d{2}\.\d{2}_\d{2}\.\d{2}\.\d{2})_[\w-]+\.\w+$`)

// Db обращение к базе данных. Инициируется через NewDb
type Db struct {
	ctx             context.Context
	log             *logrus.Entry
	db              *gorm.DB
	RootSnapshotDir string
	gauges          map[string]model.GaugeInfo

	lastCache *cache.Cache
}

// ConfigDb конфигурацияи класса NewDb
type ConfigDb struct {
	Log             *logrus.Logger
	DbFile          string
	RootSnapshotDir string
	// Описания манометров для истории показаний
	Gauges []model.GaugeInfo
}

// NewDb конструктор класса Db
func NewDb(ctx context.Context, config *ConfigDb) (store.DbStore, error) {
	if config == nil {
		return nil, errors.New("не указана конфигурация")
	}
	if config.Log == nil {
		config.Log = logrus.New()
		config.Log.Out = ioutil.Discard
	}
	if config.DbFile == "" {
		return nil, errors.New("в конфигурациине указана строка подлкючения")
	}
	if config.RootSnapshotDir == "" {
		return nil, errors.New("не указана директория снимков")
	}

	// Подключаемся к БД и запускаем миграции
	conn, err := gorm.Open(sqlite.Open(config.DbFile), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, errors.Annotate(err, "ошибка подключения к файлу БД")
	}
	err = conn.AutoMigrate(Reading{})
	if err != nil {
		return nil, errors.Annotate(err, "ошибка миграции БД")
	}

	db := Db{
		ctx: ctx,
		log: config.Log.WithFields(map[string]interface{}{
			"module": "db",
			"scope":  "store",
		}),
		db:              conn,
		RootSnapshotDir: config.RootSnapshotDir,
		gauges:          make(map[string]model.GaugeInfo),

		lastCache: cache.New(cacheDuration, cacheCleared),
	}
	for _, g := range config.Gauges {
		db.gauges[g.ID] = g
	}

	return &db, nil
}

// IsNotFound проверяет, что ошибка err обозначает, что записи не найдены
func (m Db) IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Cause(err) == gorm.ErrRecordNotFound || errors.IsNotFound(err)
}

// SnapshotImage получает снимок из файловой БД по его имени
func (m Db) SnapshotImage(name string) ([]byte, error) {
	// Вычлиняем подпапку с датой и часом
	match := reSnapshotName.FindStringSubmatch(name)
	if len(match) == 0 {
		m.log.Warnf("некорректное имя файла снимка: %s", name)
		return nil, errors.NotValidf("имя файла снимка %s", name)
	}
	t, err := time.Parse(fileDateFormat, match[1])
	if err != nil {
		m.log.Warnf("время в имени файла указано некорректно: %s", match[1])
		return nil, errors.NotValidf("время %s в имени файла", match[1])
	}
	fileName := filepath.Join(m.RootSnapshotDir, t.Format(dirDateFormat), t.Format("15"), name)
	content, err := ioutil.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			m.log.Warnf("не найден указанный файл: %s", fileName)
			return nil, errors.NotFoundf("файл %s", name)
		}
		m.log.Errorf("ошибка чтения файла %s: %s", fileName, err)
		return nil, errors.Annotatef(err, "ошибка чтения %s", fileName)
	}
	return content, nil
}

// SetSnapshotImage сохраняет снимок в файловую базу данных. Возвращает имя сохранённого файла
func (m Db) SetSnapshotImage(create time.Time, gaugeID string, content []byte) (*string, error) {
	if len(content) == 0 {
		return nil, errors.New("пустой снимок")
	}
	fPath := filepath.Join(m.RootSnapshotDir, create.Format(dirDateFormat), create.Format("15"))
	fName := fmt.Sprintf("%s_%s%s", create.Format(fileDateFormat), gaugeID, mimetype.Detect(content).Extension())
	if !reSnapshotName.MatchString(fName) {
		return nil, errors.NotValidf("имя файла снимка %s", fName)
	}

	// Создаём директорию, если её нет
	if err := os.MkdirAll(fPath, os.ModePerm); err != nil {
		m.log.Errorf("ошибка создания директории %s: %s", fPath, err)
		return nil, errors.Trace(err)
	}
	// Сохраняем файл, если его ещё нет
	if _, err := os.Stat(filepath.Join(fPath, fName)); err != nil && os.IsNotExist(err) {
		if err := ioutil.WriteFile(filepath.Join(fPath, fName), content, 0644); err != nil {
			m.log.Errorf("ошибка сохранения файла %s: %s", filepath.Join(fPath, fName), err)
			return nil, errors.Trace(err)
		}
	}
	return &fName, nil
}

// SetReadingLog сохранение показания в лог показаний
func (m Db) SetReadingLog(reading model.Reading, imageName string) error {
	var row Reading
	if err := row.FromReading(reading, imageName); err != nil {
		return errors.Annotate(err, "ошибка преобразования показания")
	}
	if err := m.db.WithContext(m.ctx).Create(&row).Error; err != nil {
		m.log.Warn(err)
		return errors.Trace(err)
	}
	m.lastCache.Set(reading.GaugeID, row, cache.DefaultExpiration)
	return nil
}

// LastReading возвращает последнее показание манометра gaugeID
func (m Db) LastReading(gaugeID string) (*model.Reading, error) {
	if r, found := m.lastCache.Get(gaugeID); found {
		reading := r.(Reading).ToReading()
		return &reading, nil
	}
	var row Reading
	if err := m.db.WithContext(m.ctx).Where("gauge_id = ?", gaugeID).Order("created_at desc").Take(&row).Error; err != nil {
		if m.IsNotFound(err) {
			return nil, errors.NotFoundf("показание манометра %s", gaugeID)
		}
		m.log.Warn(err)
		return nil, errors.Trace(err)
	}
	m.lastCache.Set(gaugeID, row, cache.DefaultExpiration)
	reading := row.ToReading()
	return &reading, nil
}

// GaugeLog возвращает показания манометра gaugeID за days дней (со смещением offsetDays)
func (m Db) GaugeLog(gaugeID string, days uint, offsetDays uint, compact bool) ([]model.ReadingMetric, error) {
	info, ok := m.gauges[gaugeID]
	if !ok {
		m.log.Warnf("манометр %s не описан в конфигурации", gaugeID)
		return nil, errors.NotFoundf("манометр %s", gaugeID)
	}
	startDays, finishDays := m.calculateDate(days, offsetDays)
	rows := make([]Reading, 0)
	if err := m.db.WithContext(m.ctx).
		Where("gauge_id = ? AND created_at > ? AND created_at < ?", gaugeID, startDays, finishDays).
		Order("created_at").
		Find(&rows).Error; err != nil {
		m.log.Warn(err)
		return nil, errors.Trace(err)
	}

	result := make([]model.ReadingMetric, 0, len(rows))
	for _, v := range rows {
		metric := v.ToMetric()
		metric.Gauge = info
		result = append(result, metric)
	}

	// Сжатие показаний при compact=true
	if compact {
		result = m.compactReadings(result)
	}

	return result, nil
}

// Сжатие лога показаний до однодневного лога с указанием максимального и минимального значения.
// Тревога дня выставлена, если она срабатывала хотя бы раз
func (m Db) compactReadings(readings []model.ReadingMetric) []model.ReadingMetric {

	// Делаем промежуточную карту для объединения показаний в один день
	cacheLoc := make(map[string]model.ReadingMetric)
	for _, v := range readings {
		if v.Value == nil {
			continue
		}
		value := *v.Value
		date := tool.RoundToDate(v.Date)
		dateStr := date.Format(dirDateFormat)
		c, ok := cacheLoc[dateStr]
		if !ok {
			c = model.ReadingMetric{
				Date:       date,
				ValueMax:   value,
				ValueMin:   value,
				Confidence: v.Confidence,
				Alarms:     make(map[string]bool),
				Gauge:      v.Gauge,
			}
		}
		if value > c.ValueMax {
			c.ValueMax = value
		}
		if value < c.ValueMin {
			c.ValueMin = value
		}
		c.Confidence = c.Confidence.Lower(v.Confidence)
		for name, on := range v.Alarms {
			c.Alarms[name] = c.Alarms[name] || on
		}
		cacheLoc[dateStr] = c
	}

	// Формируем окончательный результат
	result := make([]model.ReadingMetric, 0, len(cacheLoc))
	for _, v := range cacheLoc {
		result = append(result, v)
	}

	// Окончательная сортировка
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result
}

// Вычисляет, начиная с текущей даты колличество дней days со смещением offset дней. Возвращается начало
// периода в startDate до finishDate
func (m Db) calculateDate(days uint, offset uint) (startDate, finishDate time.Time) {
	finishDate = time.Now().Add(-(time.Duration(offset) * time.Hour * 24))
	startDate = finishDate.Add(-(time.Duration(days) * time.Hour * 24)) // Всего дней
	return startDate, finishDate
}

// Clean удаляет записи в БД и директории со снимками старше days дней
func (m Db) Clean(days int) error {
	if days <= 0 {
		return errors.NotValidf("срок хранения %d дней", days)
	}
	m.log.Info("запуск процесса очистки старых данных архива")

	// Удаление записей в базе данных
	lastDate, _ := m.calculateDate(uint(days), 0)
	res := m.db.WithContext(m.ctx).Where("created_at < ?", lastDate).Delete(&Reading{})
	if res.Error != nil {
		m.log.Warn(res.Error)
		return errors.Trace(res.Error)
	}
	if res.RowsAffected > 0 {
		m.log.Infof("из архива удалено %d показаний", res.RowsAffected)
		m.lastCache.Flush()
	}

	// Удаление директорий со снимками. Директория дня удаляется целиком, когда весь день старше срока
	entries, err := ioutil.ReadDir(m.RootSnapshotDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Annotatef(err, "ошибка чтения директории %s", m.RootSnapshotDir)
	}
	lastDay := tool.RoundToDate(lastDate)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		day, err := time.ParseInLocation(dirDateFormat, e.Name(), time.Local)
		if err != nil || !day.Before(lastDay) {
			continue
		}
		dir := filepath.Join(m.RootSnapshotDir, e.Name())
		if err := os.RemoveAll(dir); err != nil {
			m.log.Warnf("ошибка удаления директории %s: %s", dir, err)
			continue
		}
		m.log.Infof("удалена директория снимков %s", dir)
	}
	return nil
}
