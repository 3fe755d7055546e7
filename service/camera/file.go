package camera

import (
	"context"
	"io/ioutil"
	"net/url"
	"strings"
	"time"

	"github.com/kirsrus/gauge-reader/service"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

// File снимок из файла (камера, сохраняющая кадры на диск, или отладка). Инициируется через NewFile
type File struct {
	log  *logrus.Entry
	path string
}

// ConfigFile конфигурация File
type ConfigFile struct {
	Log *logrus.Logger
	// Путь к файлу или адрес вида file:///path/to/snapshot.jpg
	Path string
}

// NewFile конструктор File
func NewFile(config *ConfigFile) (service.CameraSvc, error) {
	if config == nil {
		return nil, errors.New("не задана конфигурация config")
	}
	if config.Log == nil {
		config.Log = logrus.New()
		config.Log.Out = ioutil.Discard
	}
	path := strings.TrimSpace(config.Path)
	if strings.HasPrefix(path, "file://") {
		u, err := url.Parse(path)
		if err != nil {
			return nil, errors.Annotatef(err, "некорректный адрес %s", path)
		}
		path = u.Path
	}
	if path == "" {
		return nil, errors.New("не указан путь к снимку")
	}
	return &File{
		log: config.Log.WithFields(map[string]interface{}{
			"module": "camera",
			"scope":  "service",
			"path":   path,
		}),
		path: path,
	}, nil
}

// Snapshot читает снимок из файла
func (m *File) Snapshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	data, err := ioutil.ReadFile(m.path)
	if err != nil {
		return nil, errors.Annotatef(err, "ошибка чтения %s", m.path)
	}
	if err := checkImage(data); err != nil {
		return nil, errors.Trace(err)
	}
	m.log.Debugf("снимок %s (%d байт) прочитан", m.path, len(data))
	return data, nil
}

// New камера по адресу снимка: http(s) или файл. timeout ограничивает скачивание по HTTP
func New(address, username, password string, timeout time.Duration, log *logrus.Logger) (service.CameraSvc, error) {
	if strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://") {
		return NewHttp(&ConfigHttp{Log: log, URL: address, Username: username, Password: password, DownloadTimeout: timeout})
	}
	return NewFile(&ConfigFile{Log: log, Path: address})
}
