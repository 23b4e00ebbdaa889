package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudent_FullName(t *testing.T) {
	tests := []struct {
		name string
		in   UserName
		want string
	}{
		{"all parts", UserName{FirstName: "John", MiddleName: "Michael", LastName: "Doe"}, "John Michael Doe"},
		{"no middle name", UserName{FirstName: "John", LastName: "Doe"}, "John Doe"},
		{"first only", UserName{FirstName: "John"}, "John"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Student{Name: tt.in}
			assert.Equal(t, tt.want, s.FullName())
		})
	}
}

func TestGroupField_Valid(t *testing.T) {
	assert.True(t, GroupByGender.Valid())
	assert.True(t, GroupByBloodGroup.Valid())
	assert.True(t, GroupByStatus.Valid())
	assert.False(t, GroupField("email").Valid())
}

func TestStudent_MarshalJSON(t *testing.T) {
	dob := time.Date(2004, 2, 29, 0, 0, 0, 0, time.UTC)
	s := Student{
		ID:          "S-1",
		Name:        UserName{FirstName: "John", MiddleName: "Michael", LastName: "Doe"},
		Gender:      GenderMale,
		DateOfBirth: &dob,
		Email:       "a@b.com",
		Status:      StatusActive,
	}

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "John Michael Doe", out["fullName"])
	assert.Equal(t, "2004-02-29", out["dateOfBirth"])
	assert.Equal(t, "S-1", out["id"])
	assert.Equal(t, false, out["isDeleted"])
	assert.Equal(t, "John", out["name"].(map[string]interface{})["firstName"])

	s.DateOfBirth = nil
	raw, err = json.Marshal(&s)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "dateOfBirth")
	assert.Contains(t, string(raw), `"fullName":"John Michael Doe"`)
}

func TestStudentPatch_Apply(t *testing.T) {
	dob := time.Date(2001, 7, 15, 0, 0, 0, 0, time.UTC)
	s := &Student{
		ID:       "S-1",
		Name:     UserName{FirstName: "John", LastName: "Doe"},
		Email:    "a@b.com",
		Guardian: Guardian{FatherName: "Richard", MotherName: "Jane"},
		Status:   StatusActive,
	}

	email := "new@b.com"
	first := "Jack"
	mother := "Janet"
	blocked := StatusBlocked
	patch := &StudentPatch{
		Email:       &email,
		Name:        &UserNamePatch{FirstName: &first},
		Guardian:    &GuardianPatch{MotherName: &mother},
		Status:      &blocked,
		DateOfBirth: &dob,
	}
	require.False(t, patch.IsEmpty())

	patch.Apply(s)

	assert.Equal(t, "S-1", s.ID)
	assert.Equal(t, "new@b.com", s.Email)
	assert.Equal(t, "Jack", s.Name.FirstName)
	assert.Equal(t, "Doe", s.Name.LastName)
	assert.Equal(t, "Richard", s.Guardian.FatherName)
	assert.Equal(t, "Janet", s.Guardian.MotherName)
	assert.Equal(t, StatusBlocked, s.Status)
	require.NotNil(t, s.DateOfBirth)
	assert.Equal(t, dob, *s.DateOfBirth)

	(&StudentPatch{ClearDateOfBirth: true}).Apply(s)
	assert.Nil(t, s.DateOfBirth)

	assert.True(t, (&StudentPatch{}).IsEmpty())
	assert.True(t, (*StudentPatch)(nil).IsEmpty())
}
