package models

import (
	"fmt"
	"strings"
	"time"
)

// Sex enumerates the values accepted for a student's sex.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
	SexOther  Sex = "O"
)

// Valid reports whether s is one of the known values.
func (s Sex) Valid() bool {
	switch s {
	case SexMale, SexFemale, SexOther:
		return true
	}
	return false
}

const (
	// CountryCode is the dialing prefix stored in front of local phone numbers.
	CountryCode = "55"

	StudentStatusActive   = "Active"
	StudentStatusInactive = "Inactive"

	PhoneNotInformed = "Not informed"
	PhoneInvalid     = "Invalid/short"
)

// Student is a gym member.
type Student struct {
	ID           string    `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Document     string    `db:"document" json:"document"`
	IDNumber     string    `db:"id_number" json:"id_number"`
	Sex          Sex       `db:"sex" json:"sex"`
	BirthDate    time.Time `db:"birth_date" json:"birth_date"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Email        *string   `db:"email" json:"email,omitempty"`
	Street       *string   `db:"street" json:"street,omitempty"`
	Number       *string   `db:"number" json:"number,omitempty"`
	Neighborhood *string   `db:"neighborhood" json:"neighborhood,omitempty"`
	City         string    `db:"city" json:"city"`
	State        string    `db:"state" json:"state"`
	PhotoPath    *string   `db:"photo_path" json:"photo_path,omitempty"`
	EnrolledOn   time.Time `db:"enrolled_on" json:"enrolled_on"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail is a student together with the modalities it is enrolled in.
type StudentDetail struct {
	Student
	Modalities []Modality `json:"modalities"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
// A nil Active lists every student.
type StudentFilter struct {
	Active *bool
	Search string
}

// Age returns the student's age in whole years on asOf.
func (s Student) Age(asOf time.Time) int {
	return AgeOf(s.BirthDate, asOf)
}

// Status returns the display label for the active flag.
func (s Student) Status() string {
	return StudentStatus(s.Active)
}

// PhoneDisplay formats the stored phone for display.
func (s Student) PhoneDisplay() string {
	if s.Phone == nil {
		return FormatPhone("")
	}
	return FormatPhone(*s.Phone)
}

// AgeOf computes completed years between birth and asOf. The birthday itself
// counts as completed.
func AgeOf(birth, asOf time.Time) int {
	by, bm, bd := birth.Date()
	ay, am, ad := asOf.Date()
	age := ay - by
	if am < bm || (am == bm && ad < bd) {
		age--
	}
	return age
}

// StudentStatus maps the active flag to its label.
func StudentStatus(active bool) string {
	if active {
		return StudentStatusActive
	}
	return StudentStatusInactive
}

// FormatPhone renders a normalized phone number, with or without the country
// code, as "(DD) D DDDD-DDDD", "(DD) DDDD-DDDD" or "D DDDD-DDDD" for 11, 10
// and 9 local digits. It never fails: empty input yields PhoneNotInformed and
// any other length yields PhoneInvalid.
func FormatPhone(digits string) string {
	n := onlyDigits(digits)
	if n == "" {
		return PhoneNotInformed
	}
	n = strings.TrimPrefix(n, CountryCode)

	switch len(n) {
	case 11:
		return fmt.Sprintf("(%s) %s %s-%s", n[0:2], n[2:3], n[3:7], n[7:])
	case 10:
		return fmt.Sprintf("(%s) %s-%s", n[0:2], n[2:6], n[6:])
	case 9:
		return fmt.Sprintf("%s %s-%s", n[0:1], n[1:5], n[5:])
	}
	return PhoneInvalid
}

func onlyDigits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
