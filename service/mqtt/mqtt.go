// Package mqtt публикация показаний манометров в MQTT с автообнаружением Home Assistant
package mqtt

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"regexp"
	"sync"
	"time"

	"github.com/kirsrus/gauge-reader/model"
	"github.com/kirsrus/gauge-reader/pkg/validator"
	"github.com/kirsrus/gauge-reader/service"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

const (
	connectTimeout    = 5 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 250 // мс

	discoveryPrefix = "homeassistant"
	topicPrefix     = "gauge-reader"
	// Компонент в топиках обнаружения и префикс уникальных идентификаторов
	component = "gauge_reader"

	payloadOnline  = "online"
	payloadOffline = "offline"
)

// Символы, недопустимые в идентификаторе объекта Home Assistant
var reObjectID = regexp.MustCompile(`[^\w-]+`)

// Mqtt публикация показаний. Инициализируется через NewMqtt
type Mqtt struct {
	log    *logrus.Entry
	client paho.Client

	discoveryPrefix string
	topicPrefix     string

	// Отправка сообщения. Подменяется в тестах
	send func(topic string, retained bool, payload []byte) error

	mu        sync.Mutex
	announced map[string]model.GaugeInfo
}

// ConfigMqtt конфигурация Mqtt
type ConfigMqtt struct {
	Log             *logrus.Logger
	Broker          string `conform:"trim" validate:"required,url"`
	ClientID        string `conform:"trim" validate:"required"`
	Username        string `conform:"trim"`
	Password        string
	DiscoveryPrefix string `conform:"trim"`
	TopicPrefix     string `conform:"trim"`
}

// NewMqtt конструктор Mqtt. Подключается к брокеру; если брокер недоступен,
// подключение продолжается в фоне
func NewMqtt(config *ConfigMqtt) (service.PublisherSvc, error) {
	if config == nil {
		return nil, errors.New("не задана конфигурация config")
	} else if err := validator.Get().ValidateWithConform(config); err != nil {
		return nil, errors.Annotate(err, "ошибка в конфигурации")
	}
	if config.Log == nil {
		config.Log = logrus.New()
		config.Log.Out = ioutil.Discard
	}

	m := newMqtt(config)

	opts := paho.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetOnConnectHandler(func(paho.Client) {
		m.log.Info("подключение к брокеру установлено")
		m.reannounce()
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		m.log.Warnf("потеряно подключение к брокеру: %s", err)
	})

	m.client = paho.NewClient(opts)
	m.send = m.publish

	token := m.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		m.log.Warnf("брокер %s не ответил за %s, подключение продолжится в фоне", config.Broker, connectTimeout)
	} else if err := token.Error(); err != nil {
		return nil, errors.Annotatef(err, "ошибка подключения к брокеру %s", config.Broker)
	}

	return m, nil
}

func newMqtt(config *ConfigMqtt) *Mqtt {
	m := Mqtt{
		log: config.Log.WithFields(map[string]interface{}{
			"module": "mqtt",
			"scope":  "service",
			"broker": config.Broker,
		}),
		discoveryPrefix: discoveryPrefix,
		topicPrefix:     topicPrefix,
		announced:       make(map[string]model.GaugeInfo),
	}
	if config.DiscoveryPrefix != "" {
		m.discoveryPrefix = config.DiscoveryPrefix
	}
	if config.TopicPrefix != "" {
		m.topicPrefix = config.TopicPrefix
	}
	return &m
}

// Отправка сообщения брокеру с ожиданием подтверждения
func (m *Mqtt) publish(topic string, retained bool, payload []byte) error {
	if !m.client.IsConnectionOpen() {
		return errors.Errorf("нет подключения к брокеру, сообщение в %s не отправлено", topic)
	}
	token := m.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.Errorf("таймаут отправки в %s", topic)
	}
	return errors.Trace(token.Error())
}

// Announce регистрация датчика значения и датчиков тревог манометра в Home Assistant
func (m *Mqtt) Announce(info model.GaugeInfo) error {
	m.mu.Lock()
	m.announced[info.ID] = info
	m.mu.Unlock()

	for topic, payload := range m.discovery(info) {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Trace(err)
		}
		if err := m.send(topic, true, data); err != nil {
			return errors.Annotatef(err, "ошибка регистрации манометра %s", info.ID)
		}
	}
	m.log.Debugf("манометр %s зарегистрирован", info.ID)
	return nil
}

// Повторная регистрация после переподключения к брокеру
func (m *Mqtt) reannounce() {
	m.mu.Lock()
	infos := make([]model.GaugeInfo, 0, len(m.announced))
	for _, info := range m.announced {
		infos = append(infos, info)
	}
	m.mu.Unlock()

	for _, info := range infos {
		if err := m.Announce(info); err != nil {
			m.log.Warn(err)
		}
	}
}

// Publish публикация показания. Сбойное показание переводит датчики в недоступные,
// значение в состоянии при этом не обновляется
func (m *Mqtt) Publish(info model.GaugeInfo, reading model.Reading) error {
	availability := payloadOnline
	if reading.Failed() {
		availability = payloadOffline
	} else {
		data, err := json.Marshal(newState(reading))
		if err != nil {
			return errors.Trace(err)
		}
		if err := m.send(m.stateTopic(info.ID), true, data); err != nil {
			return errors.Trace(err)
		}
	}
	if err := m.send(m.availabilityTopic(info.ID), true, []byte(availability)); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Close перевод всех манометров в недоступные и отключение от брокера
func (m *Mqtt) Close() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.announced))
	for id := range m.announced {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.send(m.availabilityTopic(id), true, []byte(payloadOffline)); err != nil {
			m.log.Debug(err)
		}
	}
	if m.client != nil {
		m.client.Disconnect(disconnectQuiesce)
	}
	m.log.Info("отключено от брокера")
}

func (m *Mqtt) stateTopic(gaugeID string) string {
	return fmt.Sprintf("%s/%s/state", m.topicPrefix, gaugeID)
}

func (m *Mqtt) availabilityTopic(gaugeID string) string {
	return fmt.Sprintf("%s/%s/availability", m.topicPrefix, gaugeID)
}

// Описание устройства Home Assistant
type device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

// Сообщение автообнаружения датчика Home Assistant
type discoveryConfig struct {
	Name                string `json:"name"`
	UniqueID            string `json:"unique_id"`
	StateTopic          string `json:"state_topic"`
	ValueTemplate       string `json:"value_template"`
	AvailabilityTopic   string `json:"availability_topic"`
	JSONAttributesTopic string `json:"json_attributes_topic,omitempty"`
	DeviceClass         string `json:"device_class,omitempty"`
	StateClass          string `json:"state_class,omitempty"`
	Unit                string `json:"unit_of_measurement,omitempty"`
	Device              device `json:"device"`
}

// Топики и сообщения автообнаружения манометра: датчик значения и по датчику на каждый порог
func (m *Mqtt) discovery(info model.GaugeInfo) map[string]discoveryConfig {
	objectID := reObjectID.ReplaceAllString(info.ID, "_")
	dev := device{
		Identifiers:  []string{component + "_" + objectID},
		Name:         info.Name,
		Manufacturer: "gauge-reader",
		Model:        "analog gauge",
	}
	result := make(map[string]discoveryConfig, len(info.Thresholds)+1)

	valueID := objectID + "_value"
	result[fmt.Sprintf("%s/sensor/%s/%s/config", m.discoveryPrefix, component, valueID)] = discoveryConfig{
		Name:                info.Name,
		UniqueID:            component + "_" + valueID,
		StateTopic:          m.stateTopic(info.ID),
		ValueTemplate:       "{{ value_json.value }}",
		AvailabilityTopic:   m.availabilityTopic(info.ID),
		JSONAttributesTopic: m.stateTopic(info.ID),
		DeviceClass:         info.DeviceClass,
		StateClass:          "measurement",
		Unit:                info.Unit,
		Device:              dev,
	}

	for _, t := range info.Thresholds {
		alarmID := objectID + "_alarm_" + reObjectID.ReplaceAllString(t.Name, "_")
		result[fmt.Sprintf("%s/binary_sensor/%s/%s/config", m.discoveryPrefix, component, alarmID)] = discoveryConfig{
			Name:              fmt.Sprintf("%s %s", info.Name, t.Name),
			UniqueID:          component + "_" + alarmID,
			StateTopic:        m.stateTopic(info.ID),
			ValueTemplate:     fmt.Sprintf("{{ 'ON' if value_json.alarms.get(%q) else 'OFF' }}", t.Name),
			AvailabilityTopic: m.availabilityTopic(info.ID),
			DeviceClass:       "problem",
			Device:            dev,
		}
	}
	return result
}

// Сообщение состояния манометра
type state struct {
	Value      *float64        `json:"value"`
	Angle      float64         `json:"angle"`
	Confidence string          `json:"confidence"`
	Alarms     map[string]bool `json:"alarms"`
	Time       string          `json:"time"`
}

func newState(reading model.Reading) state {
	alarms := reading.Alarms
	if alarms == nil {
		alarms = make(map[string]bool)
	}
	return state{
		Value:      reading.Value,
		Angle:      reading.Angle,
		Confidence: string(reading.Confidence),
		Alarms:     alarms,
		Time:       reading.CreateAt.Format(time.RFC3339),
	}
}
