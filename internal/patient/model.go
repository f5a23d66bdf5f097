package patient

import (
	"time"

	"github.com/mediclin/platform/internal/shared/errors"
	"github.com/mediclin/platform/internal/shared/types"
)

// Sex is the recorded patient sex, required for scoring
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
	SexOther  Sex = "other"
)

// MaxAge bounds the accepted patient age
const MaxAge = 130

// Patient represents a registered patient
type Patient struct {
	ID             types.ID  `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Age            int       `json:"age"`
	Sex            Sex       `json:"sex"`
	MedicalHistory string    `json:"medical_history,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewPatient creates a new patient record
func NewPatient(name string, age int, sex Sex, medicalHistory string) (*Patient, error) {
	if details := validate(name, age, sex); len(details) > 0 {
		return nil, errors.Validation("invalid patient", details)
	}

	now := time.Now()
	return &Patient{
		ID:             types.NewID(),
		Code:           types.NewPatientCode(),
		Name:           name,
		Age:            age,
		Sex:            sex,
		MedicalHistory: medicalHistory,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Update applies an edit to the patient record
func (p *Patient) Update(name string, age int, sex Sex, medicalHistory string) error {
	if details := validate(name, age, sex); len(details) > 0 {
		return errors.Validation("invalid patient", details)
	}

	p.Name = name
	p.Age = age
	p.Sex = sex
	p.MedicalHistory = medicalHistory
	p.UpdatedAt = time.Now()

	return nil
}

func validate(name string, age int, sex Sex) map[string]string {
	details := map[string]string{}
	if name == "" {
		details["name"] = "name is required"
	}
	if age < 0 || age > MaxAge {
		details["age"] = "age must be between 0 and 130"
	}
	switch sex {
	case SexMale, SexFemale, SexOther:
	default:
		details["sex"] = "sex must be male, female or other"
	}
	return details
}

// --- Request/Response types ---

type CreatePatientRequest struct {
	Name           string `json:"name"`
	Age            int    `json:"age"`
	Sex            Sex    `json:"sex"`
	MedicalHistory string `json:"medical_history,omitempty"`
}

type UpdatePatientRequest struct {
	Name           *string `json:"name,omitempty"`
	Age            *int    `json:"age,omitempty"`
	Sex            *Sex    `json:"sex,omitempty"`
	MedicalHistory *string `json:"medical_history,omitempty"`
}

type ListPatientsFilter struct {
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}
