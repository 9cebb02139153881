package noahark

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikosBletsas/NoahArk-v2/api"
	"github.com/NikosBletsas/NoahArk-v2/intake"
)

const test_newCaseURL = test_baseURL + "/api/Main/NewEmergencyCase"

func TestSubmitEmergencyCase_Success(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	c, _ := newTestClient(t)
	c.Intake.UpdateFormData(loadCaseFixture(t))
	snapshot := c.Intake.GetFormData()
	events := c.options.ClientEventHandler
	drainEvents(events)

	httpmock.RegisterResponder("POST", test_newCaseURL,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, CaseFingerprint(snapshot), req.Header.Get("Idempotency-Key"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			for _, key := range api.CaseFormKeys {
				assert.Contains(t, body, key)
			}
			assert.Equal(t, "Papadaki", body[api.CaseKey_Surname])
			assert.Equal(t, "", body[api.CaseKey_Trauma])
			return httpmock.NewStringResponse(200, `{"caseId":"C-42","message":"created"}`), nil
		},
	)
	httpmock.RegisterResponder("GET", test_baseURL+"/api/Main/SendData",
		httpmock.NewStringResponder(200, ""))

	result, err := c.SubmitEmergencyCase(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "C-42", result.CaseID)
	assert.Equal(t, "created", result.Message)
	assert.NoError(t, result.SendDataErr)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())

	assert.Equal(t, api.EmptyCaseFormData(), c.Intake.GetFormData())

	pointer, err := c.CurrentCase()
	require.NoError(t, err)
	assert.Equal(t, "C-42", pointer.CaseID)
	assert.Equal(t, "P-1021", pointer.PatientID)
	assert.Equal(t, "Eleni", pointer.Name)
	assert.Equal(t, "Papadaki", pointer.Surname)
	assert.Equal(t, pointer, result.Pointer)

	assert.Equal(t, []api.ClientEventType{
		api.ClientEventType_SessionPointerSaved,
		api.ClientEventType_CaseSubmitted,
	}, eventTypes(drainEvents(events)))
}

func TestSubmitEmergencyCase_FailureKeepsForm(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	c, _ := newTestClient(t)
	c.Intake.UpdateFormData(loadCaseFixture(t))
	c.Intake.UpdateFormData(map[string]string{"operatorNote": "kept"})
	before := c.Intake.GetFormData()

	httpmock.RegisterResponder("POST", test_newCaseURL,
		httpmock.NewStringResponder(500, `{"message":"database offline"}`))

	result, err := c.SubmitEmergencyCase(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database offline")
	assert.Empty(t, result.CaseID)

	var gerr GenericError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 500, gerr.StatusCode())

	assert.Equal(t, before, c.Intake.GetFormData())
	_, err = c.CurrentCase()
	assert.ErrorIs(t, err, intake.ErrNoSession)
	assert.Equal(t, 1, httpmock.GetCallCountInfo()["POST "+test_newCaseURL])
}

func TestSubmitEmergencyCase_RetryAfterFailure(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	c, _ := newTestClient(t)
	c.Intake.UpdateFormData(loadCaseFixture(t))

	var keys []string
	httpmock.RegisterResponder("POST", test_newCaseURL,
		func(req *http.Request) (*http.Response, error) {
			keys = append(keys, req.Header.Get("Idempotency-Key"))
			if len(keys) == 1 {
				return nil, errors.New("connection reset by peer")
			}
			return httpmock.NewStringResponse(201, `{"caseId":"C-43"}`), nil
		},
	)
	httpmock.RegisterResponder("GET", test_baseURL+"/api/Main/SendData",
		httpmock.NewStringResponder(200, ""))

	_, err := c.SubmitEmergencyCase(context.Background())
	require.Error(t, err)

	result, err := c.SubmitEmergencyCase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "C-43", result.CaseID)

	require.Len(t, keys, 2)
	assert.Equal(t, keys[0], keys[1])
}

func TestSubmitEmergencyCase_MissingRequiredFields(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	c, _ := newTestClient(t)
	c.Intake.UpdateFormData(map[string]string{
		api.CaseKey_PatientID: "P-9",
		api.CaseKey_Name:      "Nikos",
		api.CaseKey_Surname:   "   ",
	})
	before := c.Intake.GetFormData()

	_, err := c.SubmitEmergencyCase(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequiredFields)

	var missing *RequiredFieldsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{api.CaseKey_Surname}, missing.Missing)

	assert.Equal(t, 0, httpmock.GetTotalCallCount())
	assert.Equal(t, before, c.Intake.GetFormData())
}

func TestSubmitEmergencyCase_SendDataFailureIsTolerated(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	c, _ := newTestClient(t)
	c.Intake.UpdateFormData(loadCaseFixture(t))

	httpmock.RegisterResponder("POST", test_newCaseURL,
		httpmock.NewStringResponder(200, `{"caseId":"C-44"}`))
	httpmock.RegisterResponder("GET", test_baseURL+"/api/Main/SendData",
		httpmock.NewStringResponder(502, "gateway"))

	result, err := c.SubmitEmergencyCase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "C-44", result.CaseID)
	require.Error(t, result.SendDataErr)

	pointer, err := c.CurrentCase()
	require.NoError(t, err)
	assert.Equal(t, "C-44", pointer.CaseID)
	assert.Equal(t, api.EmptyCaseFormData(), c.Intake.GetFormData())
}

func TestSubmitEmergencyCase_NoCaseID(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	c, _ := newTestClient(t)
	c.Intake.UpdateFormData(loadCaseFixture(t))
	httpmock.RegisterResponder("POST", test_newCaseURL,
		httpmock.NewStringResponder(200, `{"message":"queued"}`))

	result, err := c.SubmitEmergencyCase(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.CaseID)
	assert.Equal(t, intake.CasePointer{}, result.Pointer)

	_, err = c.CurrentCase()
	assert.ErrorIs(t, err, intake.ErrNoSession)
	assert.Equal(t, api.EmptyCaseFormData(), c.Intake.GetFormData())
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestCancelEmergencyCase(t *testing.T) {
	c, _ := newTestClient(t)
	c.Intake.UpdateFormData(loadCaseFixture(t))
	require.NoError(t, c.options.SessionPersistence.Save(intake.CasePointer{CaseID: "C-1"}))

	require.NoError(t, c.CancelEmergencyCase())

	assert.Equal(t, api.EmptyCaseFormData(), c.Intake.GetFormData())
	_, err := c.CurrentCase()
	assert.ErrorIs(t, err, intake.ErrNoSession)
}

func TestCaseFingerprint(t *testing.T) {
	a := api.CaseFormData{"name": "Eleni", "surname": "Papadaki"}
	b := api.CaseFormData{"surname": "Papadaki", "name": "Eleni"}
	assert.Equal(t, CaseFingerprint(a), CaseFingerprint(b))
	assert.Len(t, CaseFingerprint(a), 32)

	// key/value boundaries must not collide
	c := api.CaseFormData{"nameE": "leni", "surname": "Papadaki"}
	assert.NotEqual(t, CaseFingerprint(a), CaseFingerprint(c))

	a["name"] = "Elena"
	assert.NotEqual(t, CaseFingerprint(a), CaseFingerprint(b))
}

func TestMissingRequiredFields_CustomList(t *testing.T) {
	c, _ := newTestClient(t, func(o *Options) {
		o.RequiredCaseFields = []string{api.CaseKey_VitalBP, api.CaseKey_VitalSpO2}
	})

	missing := c.MissingRequiredFields(api.CaseFormData{api.CaseKey_VitalBP: "120/80"})
	assert.Equal(t, []string{api.CaseKey_VitalSpO2}, missing)
	assert.Empty(t, c.MissingRequiredFields(loadCaseFixtureData(t)))
}

func loadCaseFixtureData(t *testing.T) api.CaseFormData {
	t.Helper()
	return api.CaseFormData(loadCaseFixture(t))
}
