// Package intake holds the in-progress emergency case while the operator
// walks through the intake wizard.
package intake

import (
	"sync"

	"github.com/NikosBletsas/NoahArk-v2/api"
)

// Store is the single in-flight emergency case form. The application root
// owns one Store and hands it to every screen that edits the case.
//
// A Store never fails: it performs no validation and accepts any key.
// Keys outside the canonical set are kept and returned by GetFormData.
type Store struct {
	mu   sync.RWMutex
	data api.CaseFormData
}

func NewStore() *Store {
	return &Store{data: api.EmptyCaseFormData()}
}

// UpdateFormData merges partial into the form. Keys present in partial
// overwrite, all other keys are left untouched.
func (s *Store) UpdateFormData(partial map[string]string) {
	if len(partial) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range partial {
		s.data[k] = v
	}
}

// ResetFormData restores the canonical all-empty record.
func (s *Store) ResetFormData() {
	s.mu.Lock()
	s.data = api.EmptyCaseFormData()
	s.mu.Unlock()
}

// GetFormData returns a normalized copy in which every canonical key is
// present.
func (s *Store) GetFormData() api.CaseFormData {
	out := api.EmptyCaseFormData()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Get returns a single field, "" when unset.
func (s *Store) Get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key]
}

func (s *Store) set(key, value string) {
	s.UpdateFormData(map[string]string{key: value})
}

// PrefillFromPatient copies the identity of a patient picked from search
// into the form.
func (s *Store) PrefillFromPatient(p api.Patient) {
	s.UpdateFormData(map[string]string{
		api.CaseKey_PatientID: p.Id,
		api.CaseKey_Name:      p.Name,
		api.CaseKey_Surname:   p.Surname,
		api.CaseKey_Gender:    p.NormalizedGender(),
	})
}

// SetFlag stores a boolean field as "true" or "false".
func (s *Store) SetFlag(key string, on bool) {
	if on {
		s.set(key, "true")
		return
	}
	s.set(key, "false")
}

// Flag reports whether a boolean field was stored as "true".
func (s *Store) Flag(key string) bool {
	return s.Get(key) == "true"
}
