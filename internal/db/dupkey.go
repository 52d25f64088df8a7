package db

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// IsDuplicateKeyError checks whether an error from MongoDB is a unique index
// violation (code 11000). The invoice generation path maps this to its
// caller-visible "already exists" error instead of retrying.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	// Bulk writes report duplicates through a different error type.
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, we := range bwe.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
	}
	return false
}

// DuplicateKeyOnIndex reports whether err is a unique index violation on the
// named index. The server embeds the index name in the E11000 message; with
// several unique indexes on one collection this is how callers tell a lost
// race from a lost sequence number.
func DuplicateKeyOnIndex(err error, index string) bool {
	if !IsDuplicateKeyError(err) {
		return false
	}
	return strings.Contains(err.Error(), index)
}
