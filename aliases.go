package noahark

import (
	"github.com/NikosBletsas/NoahArk-v2/api"
	"github.com/NikosBletsas/NoahArk-v2/hub"
	"github.com/NikosBletsas/NoahArk-v2/intake"
	"github.com/NikosBletsas/NoahArk-v2/util"
)

type ErrorResponse = api.ErrorResponse
type CaseFormData = api.CaseFormData
type EmergencyCaseResponse = api.EmergencyCaseResponse
type Patient = api.Patient
type PatientSummary = api.PatientSummary
type BatteryStatus = api.BatteryStatus
type PatientMonitorReading = api.PatientMonitorReading
type BloodPressureReading = api.BloodPressureReading
type TemperatureReading = api.TemperatureReading
type BloodGlucoseReading = api.BloodGlucoseReading
type ClientEvent = api.ClientEvent
type ClientEventType = api.ClientEventType
type ConnectionState = hub.ConnectionState
type CasePointer = intake.CasePointer
type Logger = util.Logger
