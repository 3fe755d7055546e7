package config

type (

	// Config конфигурация программы
	Config struct {

		// Описание логирования
		Log struct {

			// Путь к файлу лога
			Path string

			// Имя файал логирования
			Filename string `required:"true" default:"gauge-reader.log"`

			// Уровень логирования
			Level string `required:"true" default:"warning"`

			// Выводить лог только на консоль
			Console bool `default:"false"`
		}

		// Описываем подключение к базе данных
		Db struct {

			// Тип базы данных (поддерживается только sqlite)
			Type string `default:"sqlite"`

			// Путь к расположению базы данных
			Path string

			// Имя файла базы данных
			Filename string `required:"true" default:"gauge-reader.sqlite"`

			// Колличество дней хранения ахрива показаний в днях
			ArchiveDays int `default:"30"`

			// Период очистки архива до ArchiveDays в минутах
			CleanArchiveInterval int `default:"30"`
		}

		// Описание места хранения снимков с камер
		Images struct {

			// Путь к корневой директории со снимками
			Path string `default:"./imagedb/snapshots"`

			// Сохранять снимок каждого цикла
			KeepSnapshots bool `default:"true"`
		}

		// Обслуживание WEB-сервера
		Http struct {

			// Порт WEB-сервера
			Port uint `required:"true" default:"8080"`

			// Корень директории со статическим контентом
			AssetsDir string `default:"assets"`
		}

		// Публикация показаний в MQTT (Home Assistant)
		Mqtt struct {

			// Включить публикацию
			Enabled bool `default:"false"`

			// Адрес брокера, например tcp://127.0.0.1:1883
			Broker string `default:"tcp://127.0.0.1:1883"`

			// Идентификатор клиента
			ClientID string `default:"gauge-reader"`

			Username string
			Password string

			// Префикс обнаружения Home Assistant
			DiscoveryPrefix string `default:"homeassistant"`

			// Префикс топиков состояния
			TopicPrefix string `default:"gauge-reader"`
		}

		// Параметры детекторов. Нулевые значения заменяются значениями по умолчанию
		Detector struct {

			// Наибольшая сторона кадра после уменьшения
			MaxDimension int

			// Минимальная доля окружности, покрытая границами
			MinCircleSupport float64

			// Покрытие окружности для высокой достоверности
			HighCircleSupport float64

			// Отношение оценки второй стрелки к лучшей, при котором стрелка неоднозначна
			AmbiguityRatio float64

			// Начальное значение генератора случайных чисел детектора стрелки
			Seed int64
		}

		// Описание манометров
		Gauge struct {

			// Таймаут цикла снятия показаний в секундах
			Timeout uint `default:"20"`

			// Интервал повтора записи в лог о сбое одного манометра в минутах
			FailureLogInterval uint `default:"60"`

			// Описание манометров
			Info []struct {

				// Идентификатор манометра. По нему будет сопоставляться база данных
				ID string `required:"true"`

				// Имя манометра
				Name string `required:"true"`

				// Адрес снимка камеры (http, https или file)
				SnapshotURL string `required:"true"`

				// Учётные данные камеры (basic auth)
				Username string
				Password string

				// Теги default элементам списка не применяются: незаданные поля
				// остаются nil и заполняются в GaugeInfos

				// Интервал опроса в минутах: 1 или 15 (15)
				Interval *uint

				// Таймаут скачивания снимка в секундах (10)
				Timeout *uint

				// Единица измерения (bar)
				Unit string

				// Класс устройства Home Assistant: pressure, temperature и т.п. (pressure)
				DeviceClass string

				// Значение шкалы в начале дуги (0)
				MinValue *float64

				// Значение шкалы в конце дуги (3)
				MaxValue *float64

				// Угол начала дуги по часовой стрелке от 12 часов (225)
				SweepStart *float64

				// Протяжённость дуги в градусах (270)
				SweepExtent *float64

				// Коэффициент сглаживания (0, 1]. 0 - без сглаживания
				Smoothing float64

				// При сбое публиковать последнее значение
				KeepLastOnFailure bool

				// Пороги тревоги. Без имени порог называется alarm_<номер>
				Alarms []struct {
					Name      string
					Threshold float64
				}
			}
		}
	}
)
