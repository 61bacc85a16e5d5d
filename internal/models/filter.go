package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ReportFilter narrows a report collection. Unset fields impose no constraint.
type ReportFilter struct {
	Date      *Date  `json:"date,omitempty"`
	StartDate *Date  `json:"startDate,omitempty"`
	EndDate   *Date  `json:"endDate,omitempty"`
	Category  string `json:"category,omitempty"`
	User      string `json:"user,omitempty"`
	Region    string `json:"region,omitempty"`
}

// IsEmpty reports whether no criterion is populated.
func (f ReportFilter) IsEmpty() bool {
	return !dateSet(f.Date) && !dateSet(f.StartDate) && !dateSet(f.EndDate) &&
		f.Category == "" && f.User == "" && f.Region == ""
}

// HasDate reports whether an exact date criterion is set.
func (f ReportFilter) HasDate() bool { return dateSet(f.Date) }

// HasStart reports whether a lower date bound is set.
func (f ReportFilter) HasStart() bool { return dateSet(f.StartDate) }

// HasEnd reports whether an upper date bound is set.
func (f ReportFilter) HasEnd() bool { return dateSet(f.EndDate) }

func dateSet(d *Date) bool {
	return d != nil && !d.IsZero()
}

// Value marshals the filter snapshot to JSON for persistence.
func (f ReportFilter) Value() (driver.Value, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal report filter: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the filter.
func (f *ReportFilter) Scan(value interface{}) error {
	if value == nil {
		*f = ReportFilter{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ReportFilter", value)
	}
	if len(data) == 0 {
		*f = ReportFilter{}
		return nil
	}
	if err := json.Unmarshal(data, f); err != nil {
		return fmt.Errorf("unmarshal report filter: %w", err)
	}
	return nil
}
