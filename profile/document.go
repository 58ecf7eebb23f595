package profile

import "time"

// RawDocument is one platform collector's output for an identifier, stored
// as-is. One document exists per (identifier, platform) pair; a new
// collection run overwrites the prior one.
type RawDocument struct {
	Platform    string         `json:"platform"`
	Identifier  string         `json:"identifier"`
	CollectedAt time.Time      `json:"collected_at"`
	Data        map[string]any `json:"data"`
}

// CleanedRecord is the model-assisted extraction of one RawDocument into a
// platform-specific target shape. Replaces the prior record for the same
// (identifier, platform) pair.
type CleanedRecord struct {
	Platform   string         `json:"platform"`
	Identifier string         `json:"identifier"`
	Data       map[string]any `json:"cleaned_data"`
	CleanedAt  time.Time      `json:"cleaned_at"`
	Backend    string         `json:"cleaning_backend"`
}

// Failed reports whether cleaning failed and Data only preserves the raw
// input. Correlation skips failed records.
func (r CleanedRecord) Failed() bool {
	if r.Data == nil {
		return true
	}
	_, hasErr := r.Data["error"]
	return hasErr
}

// CorrelationDocument is the stored correlation result for an identifier.
// Upserts replace the prior document; report generation reads it back.
type CorrelationDocument struct {
	Identifier  string    `json:"identifier"`
	Mode        string    `json:"mode"`
	Prompt      string    `json:"prompt,omitempty"`
	CollectedAt time.Time `json:"collected_at"`
	Result      *Profile  `json:"result"`
}
