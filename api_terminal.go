package noahark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/NikosBletsas/NoahArk-v2/api"
)

// call performs one request and decodes a 2xx body into out when out is
// not nil.
func (c *TerminalAPI) call(
	ctx context.Context,
	method, path string,
	postBody interface{},
	headers map[string]string,
	queryParams url.Values,
	out interface{},
) error {
	if headers == nil {
		headers = make(map[string]string)
	}
	if queryParams == nil {
		queryParams = url.Values{}
	}

	r, rBody, err := c.performRequest(ctx, path, method, postBody, headers, queryParams)
	if err != nil {
		return err
	}

	if r.StatusCode < 300 {
		// If we succeed, return the data, otherwise pass on to decode error.
		return decode(out, rBody, r.Header.Get("Content-Type"))
	}
	return c.handleError(r, rBody)
}

func (c *TerminalAPI) LoginInit(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.call(ctx, http.MethodGet, "/api/LoginApi/Init", nil, nil, nil, &out)
	return out, err
}

// Login authenticates an operator. A 401 response yields an error
// matching ErrInvalidCredentials.
func (c *TerminalAPI) Login(ctx context.Context, user, password string) (json.RawMessage, error) {
	queryParams := url.Values{}
	queryParams.Set("user", user)
	queryParams.Set("password", password)

	var out json.RawMessage
	err := c.call(ctx, http.MethodGet, "/api/LoginApi/Login", nil, nil, queryParams, &out)
	var gerr GenericError
	if errors.As(err, &gerr) && gerr.StatusCode() == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	return out, err
}

func (c *TerminalAPI) LoginOffline(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.call(ctx, http.MethodGet, "/api/LoginApi/LoginOffline", nil, nil, nil, &out)
	return out, err
}

func (c *TerminalAPI) InitApp(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.call(ctx, http.MethodGet, "/api/Main/Init", nil, nil, nil, &out)
	return out, err
}

func (c *TerminalAPI) GetBatteryStatus(ctx context.Context) (api.BatteryStatus, error) {
	var out json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/api/Main/GetBatteryStatus", nil, nil, nil, &out); err != nil {
		return api.BatteryStatus{}, err
	}
	pct, err := decodeBatteryPercentage(out)
	if err != nil {
		return api.BatteryStatus{}, err
	}
	return api.BatteryStatus{BatteryPercentage: pct}, nil
}

// GetEfimeries returns the duty roster as sent by the backend.
func (c *TerminalAPI) GetEfimeries(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.call(ctx, http.MethodGet, "/api/Main/GetEfimeries", nil, nil, nil, &out)
	return out, err
}

func (c *TerminalAPI) ScanDocument(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.call(ctx, http.MethodGet, "/api/Main/ScanDocument", nil, nil, nil, &out)
	return out, err
}

// SendData asks the terminal to forward the current case to the hospital.
func (c *TerminalAPI) SendData(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/api/Main/SendData", nil, nil, nil, nil)
}

func (c *TerminalAPI) AddMoreFiles(ctx context.Context, files []string) error {
	queryParams := url.Values{}
	queryParams.Set("data", strings.Join(files, ","))
	return c.call(ctx, http.MethodGet, "/api/Main/AddMoreFiles", nil, nil, queryParams, nil)
}

// NewEmergencyCase submits a full case record. idempotencyKey, when set,
// lets the backend drop a retried duplicate.
func (c *TerminalAPI) NewEmergencyCase(ctx context.Context, data api.CaseFormData, idempotencyKey string) (api.EmergencyCaseResponse, error) {
	headers := make(map[string]string)
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	var out api.EmergencyCaseResponse
	err := c.call(ctx, http.MethodPost, "/api/Main/NewEmergencyCase", data, headers, nil, &out)
	return out, err
}

// SearchPatient accepts either a bare array or {"patients": [...]}.
func (c *TerminalAPI) SearchPatient(ctx context.Context, query api.Patient) ([]api.Patient, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodPost, "/api/Main/SearchPatient", &query, nil, nil, &raw); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []api.Patient{}, nil
	}

	var patients []api.Patient
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &patients); err != nil {
			return nil, err
		}
		return patients, nil
	}
	var wrapped api.PatientSearchResponse
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Patients == nil {
		return []api.Patient{}, nil
	}
	return wrapped.Patients, nil
}

func (c *TerminalAPI) AddPatient(ctx context.Context, patient api.Patient) (api.Patient, error) {
	var out api.Patient
	err := c.call(ctx, http.MethodPost, "/api/Main/AddPatient", &patient, nil, nil, &out)
	return out, err
}

func (c *TerminalAPI) SetRecoverySession(ctx context.Context, sessionID string) error {
	queryParams := url.Values{}
	queryParams.Set("sessionID", sessionID)
	return c.call(ctx, http.MethodGet, "/api/Main/SetRecoverySession", nil, nil, queryParams, nil)
}

func (c *TerminalAPI) ResetCase(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/api/Main/ResetCase", nil, nil, nil, nil)
}

func (c *TerminalAPI) GetConfiguration(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.call(ctx, http.MethodGet, "/api/Configuration/GetConfiguration", nil, nil, nil, &out)
	return out, err
}

func (c *TerminalAPI) SetConfiguration(ctx context.Context, config json.RawMessage) error {
	return c.call(ctx, http.MethodPost, "/api/Configuration/SetConfiguration", config, nil, nil, nil)
}

func (c *TerminalAPI) InitPatientMonitor(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/api/Devices/PatientMonitorInit", nil, nil, nil, nil)
}

func (c *TerminalAPI) GetBloodPressureData(ctx context.Context) (api.BloodPressureReading, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/api/Devices/BloodPressureGetDeviceData", nil, nil, nil, &raw); err != nil {
		return api.BloodPressureReading{}, err
	}
	var out api.BloodPressureReading
	if len(raw) == 0 {
		return out, nil
	}
	err := decodeObject(raw, &out)
	return out, err
}

func (c *TerminalAPI) SendBloodPressureData(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/api/Devices/BloodPressureSendData", nil, nil, nil, nil)
}
