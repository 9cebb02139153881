package api

// Canonical field keys of an emergency case record. The submission endpoint
// rejects records that do not carry every one of them.
const (
	CaseKey_PatientID       = "patientId"
	CaseKey_Gender          = "gender"
	CaseKey_Name            = "name"
	CaseKey_Surname         = "surname"
	CaseKey_OtherIdentifier = "otherIdentifier"
	CaseKey_FathersName     = "fathersName"
	CaseKey_Age             = "erAge"
	CaseKey_Presentation    = "erProselefsi"
	CaseKey_Serum           = "erOros"
	CaseKey_OtherInfo       = "erAllo"

	CaseKey_HistSymptom    = "histSymptom"
	CaseKey_HistSmoker     = "histSmoker"
	CaseKey_HistAllergic   = "histAlergic"
	CaseKey_HistInfectious = "histLoimodi"
	CaseKey_Trauma         = "trauma"

	CaseKey_VitalTime    = "vitalTime"
	CaseKey_VitalPulses  = "vitalPulses"
	CaseKey_VitalBP      = "vitalAP"
	CaseKey_VitalBreaths = "vitalInhale"
	CaseKey_VitalSpO2    = "vitalSpo2"
	CaseKey_VitalTemp    = "vitalT"
	CaseKey_Skin         = "derma"
	CaseKey_Comments     = "erComments"

	CaseKey_GeneralSigns      = "genikiSimeiologia"
	CaseKey_GeneralOther      = "genOther"
	CaseKey_SurgicalSigns     = "xeirourgikiSimeiologia"
	CaseKey_NeurologicSigns   = "neurologikiSimeiologia"
	CaseKey_NeuroParesis      = "neuroParesi"
	CaseKey_NeuroHemiplegia   = "neuroHmipligia"
	CaseKey_NeuroLossOfConsc  = "neuroSergApoleiaSineidisis"
	CaseKey_NeuroEyesOpen     = "neuroSergAnoiktoiOfthalmoi"
	CaseKey_NeuroBestVerbal   = "neuroSergKalyteriProforikiApantisi"
	CaseKey_NeuroBestMotor    = "neuroSergKalyteriKinitikiApantisi"
	CaseKey_NeuroPupilSizeR   = "neuroSergKoresMegethosDeksi"
	CaseKey_NeuroPupilSizeL   = "neuroSergKoresMegethosAristero"
	CaseKey_NeuroPupilLightR  = "neuroSergKoresAntidrasiDeksi"
	CaseKey_NeuroPupilLightL  = "neuroSergKoresAntidrasiAristero"
	CaseKey_NeuroTotalScore   = "neuroSergSynoloVathmwn"
	CaseKey_CardioChestPain   = "cardioThorakikoAlgos"
	CaseKey_CardioCharacter   = "cardioXaraktiras"
	CaseKey_CardioOnset       = "cardioEnarxi"
	CaseKey_CardioDuration    = "cardioDiarkeia"
	CaseKey_CardioRespSigns   = "cardioanapneustikiSimeiologia"
	CaseKey_PsychMood         = "psychoDiathesi"
	CaseKey_PsychBehaviour    = "psychoSymperifora"
	CaseKey_PsychThoughts     = "psychoSkepseis"
)

// CaseFormKeys is the canonical key set in the order the submission API
// documents it.
var CaseFormKeys = []string{
	CaseKey_PatientID,
	CaseKey_Gender,
	CaseKey_Name,
	CaseKey_Surname,
	CaseKey_OtherIdentifier,
	CaseKey_FathersName,
	CaseKey_Age,
	CaseKey_Presentation,
	CaseKey_Serum,
	CaseKey_OtherInfo,
	CaseKey_HistSymptom,
	CaseKey_HistSmoker,
	CaseKey_HistAllergic,
	CaseKey_HistInfectious,
	CaseKey_Trauma,
	CaseKey_VitalTime,
	CaseKey_VitalPulses,
	CaseKey_VitalBP,
	CaseKey_VitalBreaths,
	CaseKey_VitalSpO2,
	CaseKey_VitalTemp,
	CaseKey_Skin,
	CaseKey_Comments,
	CaseKey_GeneralSigns,
	CaseKey_GeneralOther,
	CaseKey_SurgicalSigns,
	CaseKey_NeurologicSigns,
	CaseKey_NeuroParesis,
	CaseKey_NeuroHemiplegia,
	CaseKey_NeuroLossOfConsc,
	CaseKey_NeuroEyesOpen,
	CaseKey_NeuroBestVerbal,
	CaseKey_NeuroBestMotor,
	CaseKey_NeuroPupilSizeR,
	CaseKey_NeuroPupilSizeL,
	CaseKey_NeuroPupilLightR,
	CaseKey_NeuroPupilLightL,
	CaseKey_NeuroTotalScore,
	CaseKey_CardioChestPain,
	CaseKey_CardioCharacter,
	CaseKey_CardioOnset,
	CaseKey_CardioDuration,
	CaseKey_CardioRespSigns,
	CaseKey_PsychMood,
	CaseKey_PsychBehaviour,
	CaseKey_PsychThoughts,
}

var caseFormKeySet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(CaseFormKeys))
	for _, k := range CaseFormKeys {
		set[k] = struct{}{}
	}
	return set
}()

// IsCaseFormKey reports whether key belongs to the canonical key set.
func IsCaseFormKey(key string) bool {
	_, ok := caseFormKeySet[key]
	return ok
}

// CaseFormData is one emergency case as the flat record the submission
// endpoint accepts.
type CaseFormData map[string]string

// EmptyCaseFormData returns the canonical record with every key set to "".
func EmptyCaseFormData() CaseFormData {
	data := make(CaseFormData, len(CaseFormKeys))
	for _, k := range CaseFormKeys {
		data[k] = ""
	}
	return data
}

// Clone returns a shallow copy. A nil receiver yields an empty, non-nil map.
func (c CaseFormData) Clone() CaseFormData {
	out := make(CaseFormData, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

type EmergencyCaseResponse struct {
	CaseId  string `json:"caseId,omitempty"`
	Message string `json:"message,omitempty"`
}
