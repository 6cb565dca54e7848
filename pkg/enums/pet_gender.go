package enums

import "fmt"

// PetGender is the recorded sex of a pet.
type PetGender string

const (
	PetGenderMale   PetGender = "Male"
	PetGenderFemale PetGender = "Female"
)

var validPetGenders = []PetGender{
	PetGenderMale,
	PetGenderFemale,
}

// String implements fmt.Stringer.
func (g PetGender) String() string {
	return string(g)
}

// IsValid reports whether the value is a known PetGender.
func (g PetGender) IsValid() bool {
	for _, candidate := range validPetGenders {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParsePetGender converts raw input into a PetGender.
func ParsePetGender(value string) (PetGender, error) {
	for _, candidate := range validPetGenders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pet gender %q", value)
}
