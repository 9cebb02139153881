package intake

import (
	"github.com/NikosBletsas/NoahArk-v2/api"
	"github.com/NikosBletsas/NoahArk-v2/util"
)

type StepID string

const (
	StepPatientInfo             StepID = "patientInfo"
	StepHistoryTraumaVitalsSkin StepID = "historyTraumaVitalsSkin"
	StepGeneralSigns            StepID = "generalSigns"
	StepSurgicalNeurologicSigns StepID = "surgicalNeurologicSigns"
	StepNeurologicSigns         StepID = "neurologicSigns"
	StepCardiorespPsychSigns    StepID = "cardiorespPsychSigns"
)

// Step is one wizard page and the record keys it edits.
type Step struct {
	ID    StepID
	Title string
	Keys  []string
}

// Steps is the wizard in display order.
var Steps = []Step{
	{
		ID:    StepPatientInfo,
		Title: "Patient Information",
		Keys: []string{
			api.CaseKey_PatientID, api.CaseKey_Gender, api.CaseKey_Name, api.CaseKey_Surname,
			api.CaseKey_OtherIdentifier, api.CaseKey_FathersName, api.CaseKey_Age,
			api.CaseKey_Presentation, api.CaseKey_Serum, api.CaseKey_OtherInfo,
		},
	},
	{
		ID:    StepHistoryTraumaVitalsSkin,
		Title: "History, Trauma, Vitals & Skin",
		Keys: []string{
			api.CaseKey_HistSymptom, api.CaseKey_HistSmoker, api.CaseKey_HistAllergic, api.CaseKey_HistInfectious,
			api.CaseKey_Trauma, api.CaseKey_VitalTime, api.CaseKey_VitalPulses, api.CaseKey_VitalBP,
			api.CaseKey_VitalBreaths, api.CaseKey_VitalSpO2, api.CaseKey_VitalTemp, api.CaseKey_Skin,
			api.CaseKey_Comments,
		},
	},
	{
		ID:    StepGeneralSigns,
		Title: "General Signs",
		Keys:  []string{api.CaseKey_GeneralSigns, api.CaseKey_GeneralOther},
	},
	{
		ID:    StepSurgicalNeurologicSigns,
		Title: "Surgical & Neurologic Signs",
		Keys: []string{
			api.CaseKey_SurgicalSigns, api.CaseKey_NeurologicSigns,
			api.CaseKey_NeuroParesis, api.CaseKey_NeuroHemiplegia,
		},
	},
	{
		ID:    StepNeurologicSigns,
		Title: "Neurologic Signs",
		Keys: []string{
			api.CaseKey_NeuroLossOfConsc, api.CaseKey_NeuroEyesOpen, api.CaseKey_NeuroBestVerbal,
			api.CaseKey_NeuroBestMotor, api.CaseKey_NeuroPupilSizeR, api.CaseKey_NeuroPupilSizeL,
			api.CaseKey_NeuroPupilLightR, api.CaseKey_NeuroPupilLightL, api.CaseKey_NeuroTotalScore,
		},
	},
	{
		ID:    StepCardiorespPsychSigns,
		Title: "Cardiorespiratory & Psychiatric Signs",
		Keys: []string{
			api.CaseKey_CardioChestPain, api.CaseKey_CardioCharacter, api.CaseKey_CardioOnset,
			api.CaseKey_CardioDuration, api.CaseKey_CardioRespSigns,
			api.CaseKey_PsychMood, api.CaseKey_PsychBehaviour, api.CaseKey_PsychThoughts,
		},
	},
}

// StepByID returns the wizard step with the given id.
func StepByID(id StepID) (Step, bool) {
	for _, s := range Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// StepData returns the slice of the form a step edits.
func (s *Store) StepData(id StepID) map[string]string {
	step, ok := StepByID(id)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(step.Keys))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range step.Keys {
		out[k] = s.data[k]
	}
	return out
}

// FieldMapping maps input element ids of the wizard screens to record keys.
var FieldMapping = map[string]string{
	"patient-id":               api.CaseKey_PatientID,
	"patient-age":              api.CaseKey_Age,
	"patient-name":             api.CaseKey_Name,
	"patient-father-name":      api.CaseKey_FathersName,
	"patient-surname":          api.CaseKey_Surname,
	"patient-sex":              api.CaseKey_Gender,
	"patient-other-identifier": api.CaseKey_OtherIdentifier,
	"patient-case":             api.CaseKey_Presentation,
	"serum":                    api.CaseKey_Serum,
	"case-other-info":          api.CaseKey_OtherInfo,

	"symptoms":            api.CaseKey_HistSymptom,
	"allergies":           api.CaseKey_HistAllergic,
	"infectious-diseases": api.CaseKey_HistInfectious,
	"smoker":              api.CaseKey_HistSmoker,
	"history-comments":    api.CaseKey_Comments,
	"vital-time":          api.CaseKey_VitalTime,
	"vital-pulses":        api.CaseKey_VitalPulses,
	"vital-bp":            api.CaseKey_VitalBP,
	"vital-breaths":       api.CaseKey_VitalBreaths,
	"vital-spo2":          api.CaseKey_VitalSpO2,
	"vital-temp":          api.CaseKey_VitalTemp,
}

// ApplyField stores value under the record key mapped from a UI field id.
// Unknown ids are ignored and reported as false.
func (s *Store) ApplyField(fieldID, value string) bool {
	key, ok := FieldMapping[fieldID]
	if !ok {
		util.Debugf("intake: no record key for field %q", fieldID)
		return false
	}
	s.set(key, value)
	return true
}
