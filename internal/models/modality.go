package models

import "time"

// Modality is an activity a student can enroll in, such as Muay Thai or
// weight training.
type Modality struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
