package noahark

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/NikosBletsas/NoahArk-v2/api"
	"github.com/NikosBletsas/NoahArk-v2/util"
)

// MonitorPayload is one PatientMonitorData push. The device service sends
// either structured vitals or a diagnostic message on the same event;
// exactly one of Reading and Diagnostic is set.
type MonitorPayload struct {
	Reading    *api.PatientMonitorReading
	Diagnostic string
}

func (p MonitorPayload) IsDiagnostic() bool {
	return p.Reading == nil
}

// DecodePatientMonitorData classifies a PatientMonitorData payload. A JSON
// object, or a JSON string holding a JSON object, decodes to vitals.
// Anything else is kept verbatim as a diagnostic.
func DecodePatientMonitorData(raw json.RawMessage) MonitorPayload {
	trimmed := bytes.TrimSpace(raw)
	if reading, ok := decodeReading(trimmed); ok {
		return MonitorPayload{Reading: reading}
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		if reading, ok := decodeReading(bytes.TrimSpace([]byte(text))); ok {
			return MonitorPayload{Reading: reading}
		}
		return MonitorPayload{Diagnostic: text}
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return MonitorPayload{}
	}
	return MonitorPayload{Diagnostic: string(trimmed)}
}

func decodeReading(raw []byte) (*api.PatientMonitorReading, bool) {
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var reading api.PatientMonitorReading
	if err := json.Unmarshal(raw, &reading); err != nil {
		return nil, false
	}
	return &reading, true
}

// decodeObject accepts an object or a string carrying the JSON object.
func decodeObject(raw json.RawMessage, v interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	var text string
	if len(trimmed) > 0 && trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		trimmed = bytes.TrimSpace([]byte(text))
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("expected a JSON object, got %.40q", trimmed)
	}
	return json.Unmarshal(trimmed, v)
}

// decodeBatteryPercentage accepts a number, a numeric string, null, or an
// api.BatteryStatus object.
func decodeBatteryPercentage(raw json.RawMessage) (*float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	switch trimmed[0] {
	case '{':
		var status api.BatteryStatus
		if err := json.Unmarshal(trimmed, &status); err != nil {
			return nil, err
		}
		return status.BatteryPercentage, nil
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, err
		}
		text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "%"))
		if text == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, err
		}
		return &v, nil
	default:
		var v float64
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return nil, err
		}
		return &v, nil
	}
}

// OnBatteryStatus registers f for BatteryStatus pushes. A nil percentage
// means the terminal could not read its battery.
func (m *ConnectionManager) OnBatteryStatus(f func(percentage *float64)) func() {
	return m.AddListener(api.HubEvent_BatteryStatus, func(payload json.RawMessage) {
		pct, err := decodeBatteryPercentage(payload)
		if err != nil {
			util.Warnf("ignoring malformed %s payload: %v", api.HubEvent_BatteryStatus, err)
			return
		}
		f(pct)
	})
}

// OnHeartBeat registers f for HeartBeat pushes. The payload is opaque.
func (m *ConnectionManager) OnHeartBeat(f func(payload json.RawMessage)) func() {
	return m.AddListener(api.HubEvent_HeartBeat, Listener(f))
}

func (m *ConnectionManager) OnPatientMonitorData(f func(MonitorPayload)) func() {
	return m.AddListener(api.HubEvent_PatientMonitorData, func(payload json.RawMessage) {
		f(DecodePatientMonitorData(payload))
	})
}

func (m *ConnectionManager) OnBloodPressureData(f func(api.BloodPressureReading)) func() {
	return m.AddListener(api.HubEvent_BloodPressureData, func(payload json.RawMessage) {
		var reading api.BloodPressureReading
		if err := decodeObject(payload, &reading); err != nil {
			util.Warnf("ignoring malformed %s payload: %v", api.HubEvent_BloodPressureData, err)
			return
		}
		f(reading)
	})
}

func (m *ConnectionManager) OnTemperatureData(f func(api.TemperatureReading)) func() {
	return m.AddListener(api.HubEvent_TemperatureData, func(payload json.RawMessage) {
		var reading api.TemperatureReading
		if err := decodeObject(payload, &reading); err != nil {
			util.Warnf("ignoring malformed %s payload: %v", api.HubEvent_TemperatureData, err)
			return
		}
		f(reading)
	})
}

func (m *ConnectionManager) OnBloodGlucoseData(f func(api.BloodGlucoseReading)) func() {
	return m.AddListener(api.HubEvent_BGData, func(payload json.RawMessage) {
		var reading api.BloodGlucoseReading
		if err := decodeObject(payload, &reading); err != nil {
			util.Warnf("ignoring malformed %s payload: %v", api.HubEvent_BGData, err)
			return
		}
		f(reading)
	})
}
