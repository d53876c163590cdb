package service

import (
	"time"

	"github.com/noah-isme/academia-api/internal/models"
)

// today returns the current calendar date as seen in loc.
func today(now func() time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return models.DateOf(now().In(loc))
}
