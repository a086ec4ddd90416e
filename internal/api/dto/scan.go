package dto

import (
	"encoding/json"
	"time"
)

// ScanTarget keeps the raw JSON so a missing or non-string target can be
// treated as absent instead of failing the decode.
type ScanTarget struct {
	Target json.RawMessage `json:"target"`
}

func (s ScanTarget) TargetString() string {
	if len(s.Target) == 0 {
		return ""
	}
	var target string
	if err := json.Unmarshal(s.Target, &target); err != nil {
		return ""
	}
	return target
}

type TargetRejection struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ScanSummary struct {
	ID        uint      `json:"id"`
	Target    string    `json:"target"`
	IsIP      bool      `json:"is_ip"`
	Warnings  []string  `json:"warnings,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
