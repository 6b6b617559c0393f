package sqlquery

import (
	"hermannm.dev/wrap"
)

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Scans every row with scanRow, then closes rows.
func ScanAll[Row any](rows Rows, scanRow func(rows Rows) (Row, error)) (result []Row, err error) {
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = wrap.Error(closeErr, "failed to close result rows")
		}
	}()

	result = []Row{}
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, wrap.Errorf(err, "failed to scan result row %d", len(result)+1)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, wrap.Error(err, "failed to read result rows")
	}

	return result, nil
}
