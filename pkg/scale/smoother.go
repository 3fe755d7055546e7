package scale

// Smoother экспоненциальное сглаживание последовательных показаний.
// Не потокобезопасен
type Smoother struct {
	alpha float64
	value float64
	ok    bool
}

// NewSmoother конструктор Smoother. alpha вне (0, 1] отключает сглаживание
func NewSmoother(alpha float64) *Smoother {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return &Smoother{alpha: alpha}
}

// Apply добавляет показание v и возвращает сглаженное значение
func (m *Smoother) Apply(v float64) float64 {
	if !m.ok {
		m.value = v
		m.ok = true
		return v
	}
	m.value = m.alpha*v + (1-m.alpha)*m.value
	return m.value
}

// Last последнее сглаженное значение
func (m *Smoother) Last() (float64, bool) {
	return m.value, m.ok
}

// Reset сброс накопленного состояния
func (m *Smoother) Reset() {
	m.value = 0
	m.ok = false
}
