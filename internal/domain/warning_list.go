package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// WarningList keeps the non-fatal validation warnings of a scan request in a
// JSON column.
type WarningList []string

func (w WarningList) Value() (driver.Value, error) {
	if len(w) == 0 {
		return "[]", nil
	}

	data, err := json.Marshal([]string(w))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (w *WarningList) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*w = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("domain.WarningList: unsupported type %T", value)
	}

	if len(data) == 0 {
		*w = nil
		return nil
	}

	var parsed []string
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	if len(parsed) == 0 {
		parsed = nil
	}
	*w = parsed
	return nil
}
