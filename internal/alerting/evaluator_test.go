package alerting

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fermentation-backend/config"
	"fermentation-backend/internal/model"
)

func healthyReading() *model.SpindelReading {
	ssid := "FarmNet"
	return &model.SpindelReading{
		BatchID:     uuid.New(),
		AngleTilt:   45,
		Temperature: 22,
		Battery:     3.8,
		Gravity:     1.05,
		RSSI:        -65,
		SSID:        &ssid,
	}
}

func TestEvaluate_HealthyReadings(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())

	// Boundary values are inside the allowed ranges.
	bounds := []func(r *model.SpindelReading){
		func(r *model.SpindelReading) {},
		func(r *model.SpindelReading) { r.Temperature = 15 },
		func(r *model.SpindelReading) { r.Temperature = 30 },
		func(r *model.SpindelReading) { r.Gravity = 1.0 },
		func(r *model.SpindelReading) { r.Gravity = 1.2 },
		func(r *model.SpindelReading) { r.Battery = 3.0 },
		func(r *model.SpindelReading) { r.AngleTilt = 0 },
		func(r *model.SpindelReading) { r.AngleTilt = 360 },
		func(r *model.SpindelReading) { r.RSSI = -80 },
	}
	for i, mutate := range bounds {
		r := healthyReading()
		mutate(r)
		assert.Empty(t, e.Evaluate(r), "case %d", i)
		assert.Nil(t, e.BuildAlert(r), "case %d", i)
	}
}

func TestEvaluate_SingleViolations(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(r *model.SpindelReading)
		expected string
	}{
		{"cold", func(r *model.SpindelReading) { r.Temperature = 14.9 }, MsgTemperature},
		{"hot", func(r *model.SpindelReading) { r.Temperature = 30.1 }, MsgTemperature},
		{"gravity low", func(r *model.SpindelReading) { r.Gravity = 0.99 }, MsgGravity},
		{"gravity high", func(r *model.SpindelReading) { r.Gravity = 1.21 }, MsgGravity},
		{"battery low", func(r *model.SpindelReading) { r.Battery = 2.99 }, MsgBattery},
		{"tilt negative", func(r *model.SpindelReading) { r.AngleTilt = -1 }, MsgTilt},
		{"tilt too large", func(r *model.SpindelReading) { r.AngleTilt = 361 }, MsgTilt},
		{"weak signal", func(r *model.SpindelReading) { r.RSSI = -81 }, MsgSignal},
		{"ssid absent", func(r *model.SpindelReading) { r.SSID = nil }, MsgNoSSID},
		{"ssid blank", func(r *model.SpindelReading) { blank := " "; r.SSID = &blank }, MsgNoSSID},
	}

	e := NewEvaluator(DefaultThresholds())
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := healthyReading()
			tc.mutate(r)
			assert.Equal(t, []string{tc.expected}, e.Evaluate(r))
		})
	}
}

func TestEvaluate_TemperatureAndBattery(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	r := healthyReading()
	r.Temperature = 35
	r.Battery = 2.5

	assert.Equal(t, []string{
		"Temperature out of range (15-30°C)",
		"Low battery voltage",
	}, e.Evaluate(r))

	alert := e.BuildAlert(r)
	require.NotNil(t, alert)
	assert.Equal(t, model.AlertLevelWarning, alert.Level)
	assert.Equal(t, "Temperature out of range (15-30°C); Low battery voltage", alert.Message)
	assert.Equal(t, r.BatchID, alert.BatchID)
}

func TestEvaluate_AllViolationsInOrder(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	r := &model.SpindelReading{
		Temperature: 40,
		Gravity:     0.5,
		Battery:     1,
		AngleTilt:   400,
		RSSI:        -95,
	}

	assert.Equal(t, []string{MsgTemperature, MsgGravity, MsgBattery, MsgTilt, MsgSignal, MsgNoSSID}, e.Evaluate(r))
}

func TestThresholdsFromConfig(t *testing.T) {
	maxTemp := 28.0
	rssi := -70
	th := ThresholdsFromConfig(config.AlertsConfig{TemperatureMax: &maxTemp, RSSIMin: &rssi})

	expected := DefaultThresholds()
	expected.TemperatureMax = 28
	expected.RSSIMin = -70
	assert.Equal(t, expected, th)

	e := NewEvaluator(th)
	r := healthyReading()
	r.Temperature = 29
	r.RSSI = -75
	assert.Equal(t, []string{MsgTemperature, MsgSignal}, e.Evaluate(r))
}
