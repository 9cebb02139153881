package intake

import (
	"strings"

	"github.com/NikosBletsas/NoahArk-v2/api"
)

// ChecklistField is a multi-select form field and the options offered for
// it.
type ChecklistField struct {
	Key     string
	Options []string
}

var (
	TraumaHistory = ChecklistField{
		Key:     api.CaseKey_Trauma,
		Options: []string{"Accident", "Beating", "Car Accident", "Industrial Accident", "Fall", "Suicide Attempt"},
	}
	SkinSigns = ChecklistField{
		Key:     api.CaseKey_Skin,
		Options: []string{"Cold", "Hot", "Dry", "Wet", "Sallow", "Cyan", "Jaundiced"},
	}
	GeneralSigns = ChecklistField{
		Key: api.CaseKey_GeneralSigns,
		Options: []string{
			"Fever", "Shiver", "Cough", "Weakening", "Malaise", "Nausea", "Dizziness", "Dry Mouth",
			"Vomit", "Eructation", "Indigestion", "Dyspepsia", "Feeling of Fullness", "Hematemesis", "Melaena", "Abdominal Pain",
			"Diarrhea", "Constipation", "Levitation", "Ascites", "Rash", "Itch", "Edema", "Alcohol Intoxication",
			"Poisoning", "Hypertension", "Hyperglycemia", "Abnormal ECG",
		},
	}
	SurgicalSigns = ChecklistField{
		Key: api.CaseKey_SurgicalSigns,
		Options: []string{
			"Pain", "Edema", "Injury", "Bite", "Fracture",
			"Sores Ulcer", "Open Fracture", "Abscess", "Crush", "Furuncle",
			"Amputation", "Hematoma", "Airy", "Rash", "Penetrating",
			"Burn", "Segmentation", "Blunt", "Abrasion", "Deformation",
			"Mobility", "Pulse",
		},
	}
	NeurologicSigns = ChecklistField{
		Key: api.CaseKey_NeurologicSigns,
		Options: []string{
			"Headache", "Quadriplegia", "Dysarthria", "Paraplegia",
			"Numbness", "Convulsions", "Visual Disturbance", "Speech Disorder",
		},
	}
	CardioChestPain = ChecklistField{
		Key:     api.CaseKey_CardioChestPain,
		Options: []string{"Retrosternal", "Epigastric", "Back", "Neck", "Mandible", "Maxillary"},
	}
	CardioCharacter = ChecklistField{
		Key:     api.CaseKey_CardioCharacter,
		Options: []string{"Pressure", "Strangulation", "Tightness", "Weight", "Burning"},
	}
	CardioOnset = ChecklistField{
		Key:     api.CaseKey_CardioOnset,
		Options: []string{"Stress", "After Eating", "At Rest"},
	}
	CardioDuration = ChecklistField{
		Key:     api.CaseKey_CardioDuration,
		Options: []string{"20-30min", "<20min", "Hours"},
	}
	CardioRespSigns = ChecklistField{
		Key:     api.CaseKey_CardioRespSigns,
		Options: []string{"Palpitations", "Leg Swelling", "Dyspnea", "Syncope - Collapse", "Cyanosis", "Pletodyfnia", "Cough"},
	}
)

// Single-choice Glasgow scale options.
var (
	EyesOpenOptions   = []string{"None", "To Pain", "To Speech", "Spontaneous"}
	BestVerbalOptions = []string{"None", "Incomprehensible Sounds", "Inappropriate Words", "Confused Conversation", "Spontaneous"}
	BestMotorOptions  = []string{
		"None",
		"Extension (Decerebrate)",
		"Abnormal Flexion (Decorticate)",
		"Flexion Withdrawl to Pain",
		"Localizes Pain",
		"Obeys Commands",
	}
)

// ChecklistFields lists every single-key checklist field of the wizard.
var ChecklistFields = []ChecklistField{
	TraumaHistory, SkinSigns, GeneralSigns, SurgicalSigns, NeurologicSigns,
	CardioChestPain, CardioCharacter, CardioOnset, CardioDuration, CardioRespSigns,
}

// SplitRule routes the options containing any of Contains to Key.
type SplitRule struct {
	Key      string
	Contains []string
}

func (r SplitRule) matches(option string) bool {
	for _, c := range r.Contains {
		if strings.Contains(option, c) {
			return true
		}
	}
	return false
}

// SplitChecklist is one checkbox grid whose selection is stored across
// several keys. Options matching no rule are not stored.
type SplitChecklist struct {
	Options []string
	Rules   []SplitRule
}

var (
	PsychiatricSigns = SplitChecklist{
		Options: []string{"Anxious", "Depression", "Aggressive", "Stimulating", "Paraesthesia", "Confusion", "Agitation"},
		Rules: []SplitRule{
			{Key: api.CaseKey_PsychMood, Contains: []string{"Anxious"}},
			{Key: api.CaseKey_PsychBehaviour, Contains: []string{"Aggressive", "Stimulating", "Agitation"}},
			{Key: api.CaseKey_PsychThoughts, Contains: []string{"Depression", "Paraesthesia", "Confusion"}},
		},
	}
	ParesisHemiplegia = SplitChecklist{
		Options: []string{"Paresis Left", "Paresis Right", "Hemiplegia Left", "Hemiplegia Right"},
		Rules: []SplitRule{
			{Key: api.CaseKey_NeuroParesis, Contains: []string{"Paresis"}},
			{Key: api.CaseKey_NeuroHemiplegia, Contains: []string{"Hemiplegia"}},
		},
	}
)

// Split partitions a selection into the per-key encodings. Every rule key
// is present in the result so deselected groups are cleared.
func (sc SplitChecklist) Split(c Checklist) map[string]string {
	out := make(map[string]string, len(sc.Rules))
	for _, r := range sc.Rules {
		var part Checklist
		for _, it := range c.items {
			if r.matches(it) {
				part.Add(it)
			}
		}
		out[r.Key] = part.String()
	}
	return out
}

// Join reassembles the selection from the per-key encodings in rule order.
func (sc SplitChecklist) Join(data map[string]string) Checklist {
	var c Checklist
	for _, r := range sc.Rules {
		for _, it := range ParseChecklist(data[r.Key]).items {
			c.Add(it)
		}
	}
	return c
}

func (s *Store) SetSplitChecklist(sc SplitChecklist, c Checklist) {
	s.UpdateFormData(sc.Split(c))
}

func (s *Store) SplitChecklist(sc SplitChecklist) Checklist {
	return sc.Join(s.GetFormData())
}
