package service

import "github.com/google/uuid"

// isRecordID reports whether id can name a stored record. Anything else is
// answered as not found without querying storage.
func isRecordID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
