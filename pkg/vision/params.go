// Package vision находит на снимке циферблат манометра и его стрелку
package vision

const (
	maxDimension      = 400
	blurSigma         = 1.0
	edgeThreshold     = 0.2
	minEdgeMagnitude  = 20.0
	minRadius         = 0.20
	maxRadius         = 0.48
	circleCandidates  = 10
	minCircleSupport  = 0.35
	highCircleSupport = 0.6
	hubExclusion      = 0.12
	rimExclusion      = 0.92
	lineVotes         = 0.15
	minNeedleLength   = 0.3
	maxLineGap        = 0.05
	maxPivotDistance  = 0.3
	proximityWeight   = 1.0
	maxLines          = 50
	ambiguityRatio    = 0.9
	sameNeedleDegrees = 10.0
)

// Params параметры детекторов. Нулевые поля заменяются значениями по умолчанию.
// Доли радиуса и размера кадра указаны в диапазоне (0, 1]
type Params struct {
	// Максимальный размер стороны кадра после уменьшения, пикселей
	MaxDimension int
	// Сигма гауссова размытия
	BlurSigma float64
	// Порог границы как доля от максимального градиента кадра
	EdgeThreshold float64
	// Абсолютный порог градиента (шкала яркости 0..255)
	MinEdgeMagnitude float64

	// Диапазон радиусов циферблата как доля от меньшей стороны кадра
	MinRadius float64
	MaxRadius float64
	// Сколько кандидатов центров проверять
	CircleCandidates int
	// Минимальная доля окружности, покрытая границами
	MinCircleSupport float64
	// Покрытие, начиная с которого циферблат считается надёжным
	HighCircleSupport float64

	// Кольцо поиска стрелки в долях радиуса
	HubExclusion float64
	RimExclusion float64
	// Порог голосов прямой в долях радиуса
	LineVotes float64
	// Минимальная длина стрелки в долях радиуса
	MinNeedleLength float64
	// Максимальный разрыв отрезка в долях радиуса
	MaxLineGap float64
	// Максимальное удаление ближнего конца стрелки от центра в долях радиуса
	MaxPivotDistance float64
	// Вес удалённости от центра в оценке стрелки
	ProximityWeight float64
	// Максимум отрезков за один кадр
	MaxLines int
	// Отношение оценок, при котором вторая стрелка делает результат сомнительным
	AmbiguityRatio float64
	// Зерно порядка обхода точек вероятностного преобразования Хафа
	Seed int64
}

// DefaultParams параметры по умолчанию
func DefaultParams() Params {
	return Params{}.withDefaults()
}

func (m Params) withDefaults() Params {
	setInt := func(v *int, def int) {
		if *v == 0 {
			*v = def
		}
	}
	setFloat := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	setInt(&m.MaxDimension, maxDimension)
	setFloat(&m.BlurSigma, blurSigma)
	setFloat(&m.EdgeThreshold, edgeThreshold)
	setFloat(&m.MinEdgeMagnitude, minEdgeMagnitude)
	setFloat(&m.MinRadius, minRadius)
	setFloat(&m.MaxRadius, maxRadius)
	setInt(&m.CircleCandidates, circleCandidates)
	setFloat(&m.MinCircleSupport, minCircleSupport)
	setFloat(&m.HighCircleSupport, highCircleSupport)
	setFloat(&m.HubExclusion, hubExclusion)
	setFloat(&m.RimExclusion, rimExclusion)
	setFloat(&m.LineVotes, lineVotes)
	setFloat(&m.MinNeedleLength, minNeedleLength)
	setFloat(&m.MaxLineGap, maxLineGap)
	setFloat(&m.MaxPivotDistance, maxPivotDistance)
	setFloat(&m.ProximityWeight, proximityWeight)
	setInt(&m.MaxLines, maxLines)
	setFloat(&m.AmbiguityRatio, ambiguityRatio)
	return m
}
