package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikosBletsas/NoahArk-v2/api"
)

const test_baseURL = "http://terminal.test"

// testEnv writes a config file pointing at the mocked backend and a
// session database in a temp dir.
func testEnv(t *testing.T) (configPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	configPath = filepath.Join(dir, "noahark.yaml")
	cfg := "api_base_url: " + test_baseURL + "\n" +
		"max_request_retries: 1\n" +
		"log_level: error\n" +
		"session_db: " + filepath.Join(dir, "session.db") + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o600))
	return configPath, dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeCase(t *testing.T, dir string, fields map[string]interface{}) string {
	t.Helper()
	raw, err := json.Marshal(fields)
	require.NoError(t, err)
	path := filepath.Join(dir, "case.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func TestCaseSubmitAndSession(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	configPath, dir := testEnv(t)
	casePath := writeCase(t, dir, map[string]interface{}{
		"patientId": "P-77",
		"name":      "Giorgos",
		"surname":   "Nikolaou",
		"erAge":     54,
	})
	before, err := os.ReadFile(casePath)
	require.NoError(t, err)

	httpmock.RegisterResponder("POST", test_baseURL+"/api/Main/NewEmergencyCase",
		func(req *http.Request) (*http.Response, error) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "54", body[api.CaseKey_Age])
			return httpmock.NewStringResponse(200, `{"caseId":"C-900"}`), nil
		},
	)
	httpmock.RegisterResponder("GET", test_baseURL+"/api/Main/SendData",
		httpmock.NewStringResponder(200, ""))

	out, err := run(t, "--config", configPath, "case", "submit", "--file", casePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Case C-900 created")

	after, err := os.ReadFile(casePath)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	out, err = run(t, "--config", configPath, "session", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "C-900")
	assert.Contains(t, out, "Giorgos Nikolaou (P-77)")

	_, err = run(t, "--config", configPath, "session", "clear")
	require.NoError(t, err)
	out, err = run(t, "--config", configPath, "session", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No active case")
}

func TestCaseSubmitMissingFields(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	configPath, dir := testEnv(t)
	casePath := writeCase(t, dir, map[string]interface{}{"name": "Anna"})

	_, err := run(t, "--config", configPath, "case", "submit", "-f", casePath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patientId")
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestCaseShow(t *testing.T) {
	configPath, dir := testEnv(t)
	casePath := writeCase(t, dir, map[string]interface{}{
		"surname":    "Vlachou",
		"histSmoker": true,
		"bedNumber":  "12",
		"erOros":     nil,
	})

	out, err := run(t, "--config", configPath, "case", "show", "--file", casePath)
	require.NoError(t, err)
	assert.Contains(t, out, `"Vlachou"`)
	assert.Contains(t, out, `"true"`)
	assert.Contains(t, out, `bedNumber`)

	// canonical keys first, extras last
	assert.Less(t, bytes.Index([]byte(out), []byte(api.CaseKey_PatientID)), bytes.Index([]byte(out), []byte("bedNumber")))
}

func TestPatientSearch(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	configPath, _ := testEnv(t)
	httpmock.RegisterResponder("POST", test_baseURL+"/api/Main/SearchPatient",
		httpmock.NewStringResponder(200, `{"patients":[{"id":"12","name":"Sofia","surname":"Karra","birthDate":"1961-04-02T00:00:00","sex":"female","mobilePhone":"6900000000"}]}`))

	out, err := run(t, "--config", configPath, "patient", "search", "--surname", "Karra")
	require.NoError(t, err)
	assert.Contains(t, out, "Sofia")
	assert.Contains(t, out, "1961-04-02")
	assert.Contains(t, out, "6900000000")

	_, err = run(t, "--config", configPath, "patient", "search")
	assert.Error(t, err)
}

func TestReadCaseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"trauma":["a"]}`), 0o600))
	_, err := readCaseFile(path)
	assert.ErrorContains(t, err, "scalar")

	require.NoError(t, os.WriteFile(path, []byte(`[1,2]`), 0o600))
	_, err = readCaseFile(path)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger("warn", true, &buf)
	require.NoError(t, err)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	_, err = newLogger("loud", false, &buf)
	assert.Error(t, err)
}
