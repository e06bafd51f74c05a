package store

import (
	"encoding/json"
	"fmt"
	"time"

	"onboarding/api/internal/profile"
)

func encodeProfile(doc *profile.Document) ([]byte, error) {
	if doc == nil {
		doc = profile.New()
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	return raw, nil
}

func decodeProfile(raw []byte, version string, updatedAt time.Time) (*profile.Document, error) {
	doc, err := profile.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if doc.SchemaVersion == "" {
		doc.SchemaVersion = version
	}
	doc.UpdatedAt = updatedAt
	return doc, nil
}
