package api

// Hub event names pushed by the terminal backend.
const (
	HubEvent_BatteryStatus      = "BatteryStatus"
	HubEvent_HeartBeat          = "HeartBeat"
	HubEvent_PatientMonitorData = "PatientMonitorData"
	HubEvent_BloodPressureData  = "BloodPressureData"
	HubEvent_TemperatureData    = "TemperatureData"
	HubEvent_BGData             = "BGData"
)

// StatusHubEvents are routed by the shared status connection.
var StatusHubEvents = []string{
	HubEvent_BatteryStatus,
	HubEvent_HeartBeat,
}

// DeviceHubEvents are routed by the device screens' connection.
var DeviceHubEvents = []string{
	HubEvent_PatientMonitorData,
	HubEvent_BloodPressureData,
	HubEvent_TemperatureData,
	HubEvent_BGData,
}
