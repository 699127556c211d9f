package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fermentation-backend/internal/model"
)

// ErrMalformedReading is returned for a feed entry that cannot be turned into a reading.
var ErrMalformedReading = errors.New("malformed reading")

// FeedEntry is one raw record from the telemetry feed, keyed by field name.
// Values are whatever the JSON decoder produced: strings, json.Number,
// float64 or nil.
type FeedEntry map[string]any

// Feed field names as delivered by the upstream channel.
const (
	FieldEntryID     = "entry_id"
	FieldCreatedAt   = "created_at"
	FieldTilt        = "field1"
	FieldTemperature = "field2"
	FieldUnit        = "field3"
	FieldBattery     = "field4"
	FieldGravity     = "field5"
	FieldInterval    = "field6"
	FieldRSSI        = "field7"
	FieldSSID        = "field8"
)

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"}

// FieldError reports which field made an entry malformed.
type FieldError struct {
	Field string
	Value any
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: field %s (%v): %v", ErrMalformedReading, e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() []error {
	return []error{ErrMalformedReading, e.Err}
}

// EntryID extracts only the entry id, so callers can label a rejected entry.
func (e FeedEntry) EntryID() (int64, error) {
	return e.intField(FieldEntryID)
}

// ParseReading converts a feed entry into a reading for the given batch.
// Any unparsable field rejects the whole entry. Values are not range checked.
func ParseReading(entry FeedEntry, batchID uuid.UUID) (model.SpindelReading, error) {
	var r model.SpindelReading
	var err error

	if r.EntryID, err = entry.intField(FieldEntryID); err != nil {
		return model.SpindelReading{}, err
	}
	if r.CreatedAt, err = entry.timeField(FieldCreatedAt); err != nil {
		return model.SpindelReading{}, err
	}
	if r.AngleTilt, err = entry.floatField(FieldTilt); err != nil {
		return model.SpindelReading{}, err
	}
	if r.Temperature, err = entry.floatField(FieldTemperature); err != nil {
		return model.SpindelReading{}, err
	}
	if r.Battery, err = entry.floatField(FieldBattery); err != nil {
		return model.SpindelReading{}, err
	}
	if r.Gravity, err = entry.floatField(FieldGravity); err != nil {
		return model.SpindelReading{}, err
	}

	interval, err := entry.intField(FieldInterval)
	if err != nil {
		return model.SpindelReading{}, err
	}
	r.Interval = int(interval)

	rssi, err := entry.intField(FieldRSSI)
	if err != nil {
		return model.SpindelReading{}, err
	}
	r.RSSI = int(rssi)

	r.Unit = entry.stringField(FieldUnit)
	if ssid := entry.stringField(FieldSSID); ssid != "" {
		r.SSID = &ssid
	}

	r.BatchID = batchID
	return r, nil
}

func (e FeedEntry) stringField(name string) string {
	switch v := e[name].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (e FeedEntry) floatField(name string) (float64, error) {
	raw, ok := e[name]
	if !ok || raw == nil {
		return 0, &FieldError{Field: name, Value: raw, Err: errors.New("missing")}
	}

	var f float64
	var err error
	switch v := raw.(type) {
	case float64:
		f = v
	case json.Number:
		f, err = v.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		err = fmt.Errorf("unexpected type %T", raw)
	}
	if err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
		err = errors.New("not a finite number")
	}
	if err != nil {
		return 0, &FieldError{Field: name, Value: raw, Err: err}
	}
	return f, nil
}

func (e FeedEntry) intField(name string) (int64, error) {
	raw, ok := e[name]
	if !ok || raw == nil {
		return 0, &FieldError{Field: name, Value: raw, Err: errors.New("missing")}
	}

	var n int64
	var err error
	switch v := raw.(type) {
	case float64:
		// 2^63 itself is not representable as int64.
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			err = errors.New("not an integer")
			break
		}
		n = int64(v)
	case json.Number:
		n, err = v.Int64()
	case string:
		n, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		err = fmt.Errorf("unexpected type %T", raw)
	}
	if err != nil {
		return 0, &FieldError{Field: name, Value: raw, Err: err}
	}
	return n, nil
}

func (e FeedEntry) timeField(name string) (time.Time, error) {
	s := e.stringField(name)
	if s == "" {
		return time.Time{}, &FieldError{Field: name, Value: e[name], Err: errors.New("missing")}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &FieldError{Field: name, Value: s, Err: errors.New("unrecognized timestamp format")}
}
