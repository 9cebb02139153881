package api

type ClientEvent struct {
	EventType ClientEventType `json:"eventType"`
	EventData interface{}     `json:"eventData"`
	Status    string          `json:"status"`
	Error     error           `json:"error"`
}

type ClientEventType string

const (
	ClientEventType_Initialized         ClientEventType = "initialized"
	ClientEventType_Error               ClientEventType = "error"
	ClientEventType_HubConnected        ClientEventType = "hubConnected"
	ClientEventType_HubReconnecting     ClientEventType = "hubReconnecting"
	ClientEventType_HubReconnected      ClientEventType = "hubReconnected"
	ClientEventType_HubClosed           ClientEventType = "hubClosed"
	ClientEventType_HubFailure          ClientEventType = "hubFailure"
	ClientEventType_CaseSubmitted       ClientEventType = "caseSubmitted"
	ClientEventType_CaseSubmitFailed    ClientEventType = "caseSubmitFailed"
	ClientEventType_RealtimeUpdates     ClientEventType = "realtimeUpdates"
	ClientEventType_SessionPointerSaved ClientEventType = "sessionPointerSaved"
)

type ErrorResponse struct {
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
