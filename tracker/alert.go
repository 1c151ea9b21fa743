package tracker

import (
	"math"
	"time"
)

type (
	// Alerts is the list of messages shown to the user, e.g. "Generation
	// failed". Alerts with a Name replace earlier alerts with the same name
	// instead of stacking.
	Alerts Model

	Alert struct {
		Name      string
		Priority  AlertPriority
		Message   string
		Duration  time.Duration
		FadeLevel float64
	}

	AlertPriority int
)

const (
	Info AlertPriority = iota
	Warning
	Error
)

const defaultAlertDuration = time.Second * 3

// Alerts returns the Alerts view of the model.
func (m *Model) Alerts() *Alerts { return (*Alerts)(m) }

// Iterate yields the alerts, most recent last.
func (m *Alerts) Iterate(yield func(index int, alert Alert) bool) {
	for i, a := range m.alerts {
		if !yield(i, a) {
			break
		}
	}
}

// Count returns the number of alerts still shown.
func (m *Alerts) Count() int { return len(m.alerts) }

// Update advances time by d, removing the alerts that have expired. It returns
// true if any alert is still animating, i.e. the UI should be redrawn soon.
func (m *Alerts) Update(d time.Duration) (animating bool) {
	for i := len(m.alerts) - 1; i >= 0; i-- {
		if m.alerts[i].Duration >= d {
			m.alerts[i].Duration -= d
			if m.alerts[i].FadeLevel < 1 {
				animating = true
				m.alerts[i].FadeLevel = math.Min(m.alerts[i].FadeLevel+float64(d)/float64(fadeTime), 1)
			}
		} else {
			m.alerts[i].Duration = 0
			m.alerts[i].FadeLevel = math.Max(m.alerts[i].FadeLevel-float64(d)/float64(fadeTime), 0)
			if m.alerts[i].FadeLevel <= 0 {
				m.alerts = append(m.alerts[:i], m.alerts[i+1:]...)
			} else {
				animating = true
			}
		}
	}
	return
}

const fadeTime = 150 * time.Millisecond

func (m *Alerts) Add(message string, priority AlertPriority) {
	m.AddAlert(Alert{
		Priority: priority,
		Message:  message,
		Duration: defaultAlertDuration,
	})
}

func (m *Alerts) AddNamed(name, message string, priority AlertPriority) {
	m.AddAlert(Alert{
		Name:     name,
		Priority: priority,
		Message:  message,
		Duration: defaultAlertDuration,
	})
}

func (m *Alerts) AddAlert(a Alert) {
	if a.Name != "" {
		for i := range m.alerts {
			if m.alerts[i].Name == a.Name {
				a.FadeLevel = m.alerts[i].FadeLevel
				m.alerts[i] = a
				return
			}
		}
	}
	m.alerts = append(m.alerts, a)
}

// Last returns the most recent alert, if any.
func (m *Alerts) Last() (Alert, bool) {
	if len(m.alerts) == 0 {
		return Alert{}, false
	}
	return m.alerts[len(m.alerts)-1], true
}
