package dto

import (
	"time"

	"github.com/noah-isme/academia-api/internal/models"
)

// StudentView is a student with its display fields derived for a given day.
type StudentView struct {
	models.Student
	Age          int               `json:"age"`
	PhoneDisplay string            `json:"phone_display"`
	Status       string            `json:"status"`
	Modalities   []models.Modality `json:"modalities"`
}

// NewStudentView derives the display fields of detail as of today.
func NewStudentView(detail models.StudentDetail, today time.Time) StudentView {
	modalities := detail.Modalities
	if modalities == nil {
		modalities = []models.Modality{}
	}
	return StudentView{
		Student:      detail.Student,
		Age:          detail.Age(today),
		PhoneDisplay: detail.PhoneDisplay(),
		Status:       detail.Status(),
		Modalities:   modalities,
	}
}

// NewStudentViews maps a listing.
func NewStudentViews(details []models.StudentDetail, today time.Time) []StudentView {
	out := make([]StudentView, 0, len(details))
	for _, d := range details {
		out = append(out, NewStudentView(d, today))
	}
	return out
}
