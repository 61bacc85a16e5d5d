package export

import "errors"

// ErrEmptyDataset is returned when a renderer receives no rows.
var ErrEmptyDataset = errors.New("dataset has no rows")

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	// Numeric maps a header to the decimal places used when the column is
	// written as a number. Renderers without numeric cells ignore it.
	Numeric map[string]int
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return errors.New("dataset requires at least one header")
	}
	if len(d.Rows) == 0 {
		return ErrEmptyDataset
	}
	return nil
}
