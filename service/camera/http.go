package camera

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/kirsrus/gauge-reader/pkg/validator"
	"github.com/kirsrus/gauge-reader/service"

	"github.com/gabriel-vasile/mimetype"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

const (
	downloadTimeout = 10 * time.Second
	// Максимальный размер снимка
	maxSnapshotSize = 32 << 20
)

// Тип текущего состояния подключения к камере
type connectType int

const (
	connectUnknown = iota
	connectSuccess
	connectFailed
)

// Http получение снимка с камеры по HTTP(S). Инициируется через NewHttp
type Http struct {
	log             *logrus.Entry
	url             string
	username        string
	password        string
	downloadTimeout time.Duration
	client          *http.Client
	connectedFlag   connectType
}

// ConfigHttp конфигурация Http
type ConfigHttp struct {
	Log             *logrus.Logger
	URL             string `conform:"trim" validate:"required,url"`
	Username        string `conform:"trim"`
	Password        string
	DownloadTimeout time.Duration
}

// NewHttp конструктор Http
func NewHttp(config *ConfigHttp) (service.CameraSvc, error) {
	if config == nil {
		return nil, errors.New("не задана конфигурация config")
	} else if err := validator.Get().ValidateWithConform(config); err != nil {
		return nil, errors.Annotate(err, "ошибка в конфигурации")
	}
	if !strings.HasPrefix(config.URL, "http://") && !strings.HasPrefix(config.URL, "https://") {
		return nil, errors.Errorf("адрес камеры %s должен быть http или https", config.URL)
	}
	if config.Log == nil {
		config.Log = logrus.New()
		config.Log.Out = ioutil.Discard
	}

	res := &Http{
		log: config.Log.WithFields(map[string]interface{}{
			"module":  "camera",
			"scope":   "service",
			"address": config.URL,
		}),
		url:             config.URL,
		username:        config.Username,
		password:        config.Password,
		downloadTimeout: downloadTimeout,
		connectedFlag:   connectUnknown,
	}
	if config.DownloadTimeout != 0 {
		res.downloadTimeout = config.DownloadTimeout
	}
	res.client = &http.Client{
		Timeout: res.downloadTimeout, // Устанавливаем таймаут обращения
	}

	return res, nil
}

// Snapshot скачивает снимок с камеры. Ответ, не являющийся изображением, считается ошибкой
func (m *Http) Snapshot(ctx context.Context) ([]byte, error) {
	data, err := m.download(ctx)
	if err != nil {
		if m.connectedFlag == connectUnknown || m.connectedFlag == connectSuccess {
			m.log.Warnf("снимок не получен: %v", err)
		}
		m.connectedFlag = connectFailed
		return nil, errors.Trace(err)
	}
	if m.connectedFlag == connectUnknown || m.connectedFlag == connectFailed {
		m.log.Infof("камера доступна")
		m.connectedFlag = connectSuccess
	}
	return data, nil
}

// Скачиваем снимок по URL адресу
func (m *Http) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if m.username != "" {
		req.SetBasicAuth(m.username, m.password)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("для скачивания %s возвращён статус %d", m.url, resp.StatusCode)
	}
	data, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize+1))
	if err != nil {
		return nil, errors.Annotatef(err, "ошибка получения тела снимка %s", m.url)
	}
	if len(data) > maxSnapshotSize {
		return nil, errors.Errorf("снимок %s больше %d байт", m.url, maxSnapshotSize)
	}
	if err := checkImage(data); err != nil {
		return nil, errors.Trace(err)
	}

	m.log.Debugf("снимок %s (%d байт) скачан", m.url, len(data))
	return data, nil
}

// Проверка, что содержимое является изображением
func checkImage(data []byte) error {
	if len(data) == 0 {
		return errors.New("пустой снимок")
	}
	mime := mimetype.Detect(data).String()
	if !strings.HasPrefix(mime, "image/") {
		return errors.New(fmt.Sprintf("получен %s вместо изображения", mime))
	}
	return nil
}
