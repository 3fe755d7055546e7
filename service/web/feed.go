package web

import (
	"net/http"
	"time"

	"github.com/kirsrus/gauge-reader/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo"
)

const (
	// Период пинга клиента, иначе клиент закроет канал
	feedPingInterval = 10 * time.Second
	feedWriteTimeout = 5 * time.Second
	// Размер очереди событий одного подписчика
	feedQueueSize = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Feed WebSocket канал новых показаний. Каждое показание отправляется JSON-сообщением model.ReadingChange
func (m *Web) Feed(path string) {
	m.e.GET(path, func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			m.log.Warnf("ошибка подключения к каналу показаний: %s", err)
			return nil
		}
		defer func() { _ = conn.Close() }()

		id := uuid.New().String()
		ch := make(chan model.ReadingChange, feedQueueSize)
		m.feedSubscribePool.Store(id, ch)
		m.log.Debugf("добавлен канал %s в подписку показаний", id)
		defer func() {
			m.feedSubscribePool.Delete(id)
			m.log.Debugf("удалён канал %s из подписки показаний", id)
		}()

		// Чтение нужно только для обнаружения закрытия канала клиентом
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(feedPingInterval)
		defer ping.Stop()
		for {
			select {
			case <-m.ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(feedWriteTimeout))
				return nil
			case <-closed:
				return nil
			case change := <-ch:
				_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
				if err := conn.WriteJSON(change); err != nil {
					m.log.Debugf("ошибка отправки в канал %s: %s", id, err)
					return nil
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteTimeout)); err != nil {
					return nil
				}
			}
		}
	})
}

// ReadingChanged отправка нового показания подписчикам. Переполненный подписчик пропускает событие
func (m *Web) ReadingChanged(change model.ReadingChange) {
	m.feedSubscribePool.Range(func(key, value interface{}) bool {
		ch, ok := value.(chan model.ReadingChange)
		if !ok {
			m.log.Errorf("в feedSubscribePool неожиданный тип данных: %T", value)
			return true
		}
		select {
		case ch <- change:
			m.log.Debugf("показание %s отправлено в канал %s", change.GaugeID, key)
		default:
			m.log.Warnf("канал %s из feedSubscribePool переполнен", key)
		}
		return true
	})
}
