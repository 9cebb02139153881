package api

import (
	"strings"
	"time"
)

// Patient mirrors the backend patient record used both as search criteria
// and as search result.
type Patient struct {
	Id              string `json:"id,omitempty"`
	Name            string `json:"name,omitempty"`
	Surname         string `json:"surname,omitempty"`
	FathersName     string `json:"fathersName,omitempty"`
	BirthDate       string `json:"birthDate,omitempty"`
	Gender          string `json:"gender,omitempty"`
	Sex             string `json:"sex,omitempty"`
	Ssn             string `json:"ssn,omitempty"`
	OtherIdentifier string `json:"otherIdentifier,omitempty"`
	MobilePhone     string `json:"mobilePhone,omitempty"`
	Homephone       string `json:"homephone,omitempty"`
	AddressStreet   string `json:"addressStreet,omitempty"`
	AddressZip      string `json:"addressZip,omitempty"`
	InsuranceName   string `json:"insuranceName,omitempty"`
}

type PatientSearchResponse struct {
	Patients []Patient `json:"patients"`
}

// PatientSummary is the flattened view shown in search results.
type PatientSummary struct {
	Id                  string `json:"id"`
	Name                string `json:"name"`
	Surname             string `json:"surname"`
	DateOfBirth         string `json:"dob"`
	Gender              string `json:"gender"`
	Ssn                 string `json:"ssn"`
	Sid                 string `json:"sid"`
	Phone               string `json:"phone"`
	Address             string `json:"address,omitempty"`
	ZipCode             string `json:"zipCode,omitempty"`
	MedicalRecordNumber string `json:"medicalRecordNumber"`
	InsuranceNumber     string `json:"insuranceNumber"`
}

func (p Patient) Summary() PatientSummary {
	s := PatientSummary{
		Id:                  p.Id,
		Name:                p.Name,
		Surname:             p.Surname,
		DateOfBirth:         formatBirthDate(p.BirthDate),
		Gender:              firstNonEmpty(p.Gender, p.Sex),
		Ssn:                 p.Ssn,
		Sid:                 p.OtherIdentifier,
		Phone:               firstNonEmpty(p.MobilePhone, p.Homephone),
		Address:             p.AddressStreet,
		ZipCode:             p.AddressZip,
		MedicalRecordNumber: "MRN" + p.Id,
		InsuranceNumber:     firstNonEmpty(p.InsuranceName, "Unknown"),
	}
	return s
}

// NormalizedGender maps free-form gender values and the backend's sex codes
// onto the "male"/"female" vocabulary of the case form. Anything else
// becomes "".
func (p Patient) NormalizedGender() string {
	switch strings.ToLower(strings.TrimSpace(firstNonEmpty(p.Gender, p.Sex))) {
	case "male", "m":
		return "male"
	case "female", "f":
		return "female"
	default:
		return ""
	}
}

var birthDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func formatBirthDate(raw string) string {
	if raw == "" {
		return ""
	}
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format("2006-01-02")
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
