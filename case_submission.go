package noahark

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/twmb/murmur3"

	"github.com/NikosBletsas/NoahArk-v2/api"
	"github.com/NikosBletsas/NoahArk-v2/intake"
	"github.com/NikosBletsas/NoahArk-v2/util"
)

type SubmissionResult struct {
	CaseID         string
	Message        string
	IdempotencyKey string
	// Pointer is the saved session pointer, zero when the server returned
	// no case id.
	Pointer intake.CasePointer
	// SendDataErr is the error of the follow-up SendData call, which does
	// not fail the submission.
	SendDataErr error
}

// CaseFingerprint hashes a case record independent of map order. Equal
// records always give the same key.
func CaseFingerprint(data api.CaseFormData) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(0)
		b.WriteString(data[k])
		b.WriteByte(0)
	}
	h1, h2 := murmur3.Sum128([]byte(b.String()))
	return fmt.Sprintf("%016x%016x", h1, h2)
}

// MissingRequiredFields returns the required keys that are blank in data.
func (c *Client) MissingRequiredFields(data api.CaseFormData) []string {
	var missing []string
	for _, key := range c.options.RequiredCaseFields {
		if err := validate.Var(strings.TrimSpace(data[key]), "required"); err != nil {
			missing = append(missing, key)
		}
	}
	return missing
}

// SubmitEmergencyCase sends the in-progress case. On any failure the form
// is left exactly as it was so the operator can retry. On success the
// form is reset and the case pointer persisted.
func (c *Client) SubmitEmergencyCase(ctx context.Context) (SubmissionResult, error) {
	snapshot := c.Intake.GetFormData()

	if missing := c.MissingRequiredFields(snapshot); len(missing) > 0 {
		err := &RequiredFieldsError{Missing: missing}
		c.notify(api.ClientEventType_CaseSubmitFailed, err)
		return SubmissionResult{}, err
	}

	key := CaseFingerprint(snapshot)
	resp, err := c.NewEmergencyCase(ctx, snapshot, key)
	if err != nil {
		util.Warnf("emergency case submission failed: %v", err)
		c.notify(api.ClientEventType_CaseSubmitFailed, err)
		return SubmissionResult{}, fmt.Errorf("submitting emergency case: %w", err)
	}

	result := SubmissionResult{
		CaseID:         resp.CaseId,
		Message:        resp.Message,
		IdempotencyKey: key,
	}
	if resp.CaseId != "" {
		util.Infof("emergency case %s created", resp.CaseId)
		if err := c.SendData(ctx); err != nil {
			util.Warnf("SendData failed, but case %s was created: %v", resp.CaseId, err)
			result.SendDataErr = err
		}

		pointer := intake.CasePointer{
			CaseID:    resp.CaseId,
			PatientID: snapshot[api.CaseKey_PatientID],
			Name:      snapshot[api.CaseKey_Name],
			Surname:   snapshot[api.CaseKey_Surname],
			CreatedAt: time.Now().UTC(),
		}
		if err := c.options.SessionPersistence.Save(pointer); err != nil {
			util.Warnf("could not persist case pointer: %v", err)
		} else {
			result.Pointer = pointer
			c.notify(api.ClientEventType_SessionPointerSaved, nil)
		}
	} else {
		util.Warnf("emergency case accepted without a case id")
	}

	c.Intake.ResetFormData()
	sendClientEvent(c.options.ClientEventHandler, api.ClientEvent{
		EventType: api.ClientEventType_CaseSubmitted,
		EventData: result,
	})
	return result, nil
}

// CancelEmergencyCase discards the in-progress case and its pointer.
func (c *Client) CancelEmergencyCase() error {
	c.Intake.ResetFormData()
	return c.options.SessionPersistence.Clear()
}

// CurrentCase returns the persisted pointer of the last submitted case.
func (c *Client) CurrentCase() (intake.CasePointer, error) {
	return c.options.SessionPersistence.Load()
}
