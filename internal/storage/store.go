// Package storage implements the per-user record store behind the storage
// service. Every backend increments a record's version atomically on write.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// TimestampLayout formats Metadata.LastUpdated.
const TimestampLayout = "2006-01-02 15:04:05"

const metadataKey = "metadata"

// ErrNotObject is returned when written data is not a JSON object.
var ErrNotObject = errors.New("data must be a JSON object")

// Metadata is stamped onto every stored record.
type Metadata struct {
	LastUpdated string `json:"last_updated"`
	Version     int64  `json:"version"`
}

// Store persists one opaque JSON object per user.
type Store interface {
	// Read returns the stored record with its metadata stamped in. The bool
	// is false when the user has no record.
	Read(ctx context.Context, userID string) (json.RawMessage, bool, error)
	// Write replaces the user's record and returns the new metadata. The
	// version is the prior version plus one, or 1 for a new user.
	Write(ctx context.Context, userID string, data json.RawMessage) (Metadata, error)
	// Count returns the number of users with a record.
	Count(ctx context.Context) (int, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// Clock returns the current time. Stores take one so tests can pin it.
type Clock func() time.Time

func (c Clock) stamp() string {
	if c == nil {
		return time.Now().Format(TimestampLayout)
	}
	return c().Format(TimestampLayout)
}

func validateObject(data json.RawMessage) error {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return ErrNotObject
	}
	return nil
}

// withMetadata returns data with its "metadata" key set to meta. Other keys
// keep their order.
func withMetadata(data json.RawMessage, meta Metadata) (json.RawMessage, error) {
	stamped, err := sjson.SetBytes(data, metadataKey, meta)
	if err != nil {
		return nil, fmt.Errorf("stamp metadata: %w", err)
	}
	return stamped, nil
}

// versionOf reads metadata.version from a stamped record; 0 when absent.
func versionOf(record json.RawMessage) int64 {
	return gjson.GetBytes(record, metadataKey+".version").Int()
}
