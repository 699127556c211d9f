package alerting

import (
	"strings"

	"fermentation-backend/config"
	"fermentation-backend/internal/model"
)

// Violation messages, in evaluation order.
const (
	MsgTemperature = "Temperature out of range (15-30°C)"
	MsgGravity     = "Gravity out of range (1.000-1.200)"
	MsgBattery     = "Low battery voltage"
	MsgTilt        = "Angle tilt out of expected range (0-360°)"
	MsgSignal      = "Weak signal strength (RSSI)"
	MsgNoSSID      = "WiFi SSID not detected"
)

// Default thresholds. Bounds are inclusive: a value equal to a bound is in range.
const (
	DefaultTemperatureMin = 15.0
	DefaultTemperatureMax = 30.0
	DefaultGravityMin     = 1.0
	DefaultGravityMax     = 1.2
	DefaultBatteryMin     = 3.0
	DefaultTiltMin        = 0.0
	DefaultTiltMax        = 360.0
	DefaultRSSIMin        = -80
)

// MessageSeparator joins violations into an alert message.
const MessageSeparator = "; "

// Thresholds holds the bounds a reading is checked against.
type Thresholds struct {
	TemperatureMin float64
	TemperatureMax float64
	GravityMin     float64
	GravityMax     float64
	BatteryMin     float64
	TiltMin        float64
	TiltMax        float64
	RSSIMin        int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		TemperatureMin: DefaultTemperatureMin,
		TemperatureMax: DefaultTemperatureMax,
		GravityMin:     DefaultGravityMin,
		GravityMax:     DefaultGravityMax,
		BatteryMin:     DefaultBatteryMin,
		TiltMin:        DefaultTiltMin,
		TiltMax:        DefaultTiltMax,
		RSSIMin:        DefaultRSSIMin,
	}
}

// ThresholdsFromConfig overlays the configured bounds on the defaults.
func ThresholdsFromConfig(cfg config.AlertsConfig) Thresholds {
	t := DefaultThresholds()
	setFloat(&t.TemperatureMin, cfg.TemperatureMin)
	setFloat(&t.TemperatureMax, cfg.TemperatureMax)
	setFloat(&t.GravityMin, cfg.GravityMin)
	setFloat(&t.GravityMax, cfg.GravityMax)
	setFloat(&t.BatteryMin, cfg.BatteryMin)
	setFloat(&t.TiltMin, cfg.TiltMin)
	setFloat(&t.TiltMax, cfg.TiltMax)
	if cfg.RSSIMin != nil {
		t.RSSIMin = *cfg.RSSIMin
	}
	return t
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// Evaluator checks readings against a fixed set of thresholds.
type Evaluator struct {
	thresholds Thresholds
}

func NewEvaluator(t Thresholds) *Evaluator {
	return &Evaluator{thresholds: t}
}

// Evaluate returns the violated conditions of a reading in fixed order.
// It has no side effects; an empty result means the reading is healthy.
func (e *Evaluator) Evaluate(r *model.SpindelReading) []string {
	t := e.thresholds
	var violations []string

	if r.Temperature < t.TemperatureMin || r.Temperature > t.TemperatureMax {
		violations = append(violations, MsgTemperature)
	}
	if r.Gravity < t.GravityMin || r.Gravity > t.GravityMax {
		violations = append(violations, MsgGravity)
	}
	if r.Battery < t.BatteryMin {
		violations = append(violations, MsgBattery)
	}
	if r.AngleTilt < t.TiltMin || r.AngleTilt > t.TiltMax {
		violations = append(violations, MsgTilt)
	}
	if r.RSSI < t.RSSIMin {
		violations = append(violations, MsgSignal)
	}
	if r.SSID == nil || strings.TrimSpace(*r.SSID) == "" {
		violations = append(violations, MsgNoSSID)
	}

	return violations
}

// BuildAlert returns the single WARNING alert for a reading, or nil when the
// reading violates nothing. The store fills in the reading reference on insert.
func (e *Evaluator) BuildAlert(r *model.SpindelReading) *model.Alert {
	violations := e.Evaluate(r)
	if len(violations) == 0 {
		return nil
	}
	return &model.Alert{
		BatchID: r.BatchID,
		Level:   model.AlertLevelWarning,
		Message: strings.Join(violations, MessageSeparator),
	}
}
