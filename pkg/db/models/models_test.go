package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPetAgeAt(t *testing.T) {
	birth := time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC)
	pet := Pet{BirthDate: &birth}

	require.Equal(t, 3, *pet.AgeAt(time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC)))
	require.Equal(t, 4, *pet.AgeAt(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 0, *pet.AgeAt(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.Nil(t, Pet{}.AgeAt(time.Now()))
}

func TestServiceClassification(t *testing.T) {
	require.True(t, Service{Title: "GETVACCINE"}.IsVaccination())
	require.True(t, Service{Title: " neutering/spaying "}.IsNeutering())
	require.True(t, Service{Title: "others"}.IsMain())
	require.False(t, Service{Title: "Grooming"}.IsMain())
	require.False(t, Service{Title: "Grooming"}.IsVaccination())
}

func TestBeforeCreateAssignsIDAndNormalizesEmail(t *testing.T) {
	user := &User{Email: "  Someone@Example.COM "}
	require.NoError(t, user.BeforeCreate(nil))
	require.NotEqual(t, uuid.Nil, user.ID)
	require.Equal(t, "someone@example.com", user.Email)

	fixed := uuid.New()
	pet := &Pet{ID: fixed}
	require.NoError(t, pet.BeforeCreate(nil))
	require.Equal(t, fixed, pet.ID)
	require.Equal(t, "Ann Lee", User{FirstName: "Ann", LastName: "Lee"}.FullName())
}
