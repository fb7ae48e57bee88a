package rfm

import (
	"errors"
	"strings"
)

// InputError reports an upload that cannot be segmented because of its
// content. Messages are shown to end users as-is.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string {
	return e.Msg
}

var (
	// ErrEmptyFile is returned when the file has no data row after the header.
	ErrEmptyFile = &InputError{Msg: "CSV file is empty or invalid"}

	// ErrNoValidTransactions is returned when every data row was skipped.
	ErrNoValidTransactions = &InputError{Msg: "No valid transactions found in CSV"}
)

// MissingColumnsError lists every required header absent from the file.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "Missing required columns: " + strings.Join(e.Columns, ", ")
}

// IsInputError reports whether err was caused by the uploaded content rather
// than by the system.
func IsInputError(err error) bool {
	var inputErr *InputError
	var columnsErr *MissingColumnsError
	return errors.As(err, &inputErr) || errors.As(err, &columnsErr)
}
