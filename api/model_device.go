package api

// BatteryStatus is the polled battery response. A nil percentage means the
// terminal could not read the battery.
type BatteryStatus struct {
	BatteryPercentage *float64 `json:"batteryPercentage"`
}

// PatientMonitorReading is the structured vitals payload pushed on the
// PatientMonitorData hub event.
type PatientMonitorReading struct {
	HeartRate         *float64 `json:"heartRate,omitempty"`
	SpO2              *float64 `json:"spO2,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	RespiratoryRate   *float64 `json:"respiratoryRate,omitempty"`
	BloodSugar        *float64 `json:"bloodSugar,omitempty"`
	SystolicPressure  *float64 `json:"systolicPressure,omitempty"`
	MeanPressure      *float64 `json:"meanPressure,omitempty"`
	DiastolicPressure *float64 `json:"diastolicPressure,omitempty"`
	CheckTime         string   `json:"checkTime,omitempty"`
}

type BloodPressureReading struct {
	Systolic  *float64 `json:"systolic,omitempty"`
	Diastolic *float64 `json:"diastolic,omitempty"`
	Mean      *float64 `json:"mean,omitempty"`
	Pulse     *float64 `json:"pulse,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
}

type TemperatureReading struct {
	Celsius   *float64 `json:"temperature,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
}

type BloodGlucoseReading struct {
	MgPerDl   *float64 `json:"bloodGlucose,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
}
