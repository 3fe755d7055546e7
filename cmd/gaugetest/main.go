// Снятие показания с одного снимка манометра из файла
//
//	gaugetest -image boiler.jpg -min 0 -max 3 -alarm warning=1.8 -alarm critical=2.5
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	readerCtlMod "github.com/kirsrus/gauge-reader/controller/reader"
	"github.com/kirsrus/gauge-reader/model"
	"github.com/kirsrus/gauge-reader/pkg/logger"
	cameraSvcMod "github.com/kirsrus/gauge-reader/service/camera"

	"github.com/juju/errors"
	"github.com/k0kubun/pp"
	"github.com/sirupsen/logrus"
)

// Пороги из повторяемого флага -alarm имя=значение
type alarmFlags model.ThresholdSet

func (m *alarmFlags) String() string {
	parts := make([]string, 0, len(*m))
	for _, t := range *m {
		parts = append(parts, fmt.Sprintf("%s=%v", t.Name, t.Value))
	}
	return strings.Join(parts, ",")
}

func (m *alarmFlags) Set(s string) error {
	kv := strings.SplitN(s, "=", 2)
	if len(kv) != 2 || strings.TrimSpace(kv[0]) == "" {
		return errors.Errorf("ожидается имя=значение, получено %q", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
	if err != nil {
		return errors.Annotatef(err, "порог %s", kv[0])
	}
	*m = append(*m, model.Threshold{Name: strings.TrimSpace(kv[0]), Value: v})
	return nil
}

func main() {
	var alarms alarmFlags
	image := flag.String("image", "", "путь к снимку манометра")
	minValue := flag.Float64("min", 0, "значение в начале шкалы")
	maxValue := flag.Float64("max", 3, "значение в конце шкалы")
	start := flag.Float64("start", 225, "угол начала шкалы по часовой стрелке от 12 часов")
	extent := flag.Float64("extent", 270, "протяжённость шкалы в градусах")
	debug := flag.Bool("debug", false, "подробный лог детекторов")
	flag.Var(&alarms, "alarm", "порог тревоги имя=значение (можно повторять)")
	flag.Parse()

	if *image == "" {
		flag.Usage()
		os.Exit(2)
	}

	level := logrus.WarnLevel
	if *debug {
		level = logrus.DebugLevel
	}
	log := logger.Get(level)

	reading, err := read(log, *image, model.Calibration{
		MinValue:    *minValue,
		MaxValue:    *maxValue,
		SweepStart:  *start,
		SweepExtent: *extent,
	}, model.ThresholdSet(alarms))
	if err != nil {
		fmt.Printf("ОШИБКА: %v\n", err)
		os.Exit(1)
	}

	reading.Image = nil
	_, _ = pp.Println(reading)
	if reading.Failed() {
		fmt.Printf("показание не снято на этапе %s: %s\n", reading.FailedStage, reading.ErrorText())
		os.Exit(1)
	}
	fmt.Printf("значение: %.2f (угол %.1f, %s)\n", *reading.Value, reading.Angle, reading.Confidence)
}

// Один цикл снятия показаний со снимка из файла path
func read(log *logrus.Logger, path string, calibration model.Calibration, thresholds model.ThresholdSet) (model.Reading, error) {
	camera, err := cameraSvcMod.NewFile(&cameraSvcMod.ConfigFile{Log: log, Path: path})
	if err != nil {
		return model.Reading{}, errors.Trace(err)
	}
	reader, err := readerCtlMod.NewReader(camera, &readerCtlMod.ConfigReader{
		Log: log,
		Info: model.GaugeInfo{
			ID:          strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Name:        filepath.Base(path),
			SnapshotURL: "file://" + path,
			Calibration: calibration,
			Thresholds:  thresholds,
		},
	})
	if err != nil {
		return model.Reading{}, errors.Trace(err)
	}
	return reader.RunCycle(context.Background()), nil
}
