package record

import (
	"errors"
	"fmt"
)

// Row rule violations. Each rule has its own sentinel so callers can match with errors.Is.
var (
	ErrFieldCount           = errors.New("unexpected number of fields")
	ErrRowTooLong           = fmt.Errorf("row is longer than %d bytes", MaxRowBytes)
	ErrHeaderRecordType     = errors.New("first row must have record type 00")
	ErrTrailerRecordType    = errors.New("last row must have record type 99")
	ErrRecordType           = errors.New("record type must be 01")
	ErrLowerRangeLength     = errors.New("lower BIN range must be 18 characters long")
	ErrLowerRangeNotNumeric = errors.New("lower BIN range must only contain digits")
	ErrUpperRangeLength     = errors.New("upper BIN range must be 18 characters long")
	ErrUpperRangeNotNumeric = errors.New("upper BIN range must only contain digits")
	ErrRangeOrder           = errors.New("lower BIN range is greater than upper BIN range")
	ErrProductType          = errors.New("product type must be CN or CP")
	ErrSchemeBrandLength    = errors.New("card scheme brand name must be between 2 and 30 characters")
	ErrIssuerNameLength     = errors.New("issuer name must be between 2 and 80 characters")
	ErrCountryCodeLength    = errors.New("issuer country code must be exactly 3 characters")
	ErrCardClass            = errors.New("card class not allowed")
	ErrCurrencyCodeLength   = errors.New("cardholder currency code must be exactly 3 characters")
	ErrDCCFlag              = errors.New("DCC flag must be blank or 'DCC allowed'")
	ErrAnonPrepaidMarker    = errors.New("anonymous prepaid marker must be N, E, A or U")
	ErrGamingOCT            = errors.New("gaming OCT payments flag must be Y, N or blank")
	ErrTokenisedFlag        = errors.New("tokenised flag must be Y or blank")
	ErrPANLengthNotNumeric  = errors.New("PAN length must be numeric")
	ErrPANLengthTooLarge    = errors.New("PAN length is greater than 19")
	ErrFastFunds            = errors.New("fast funds indicator must be D, N, Y, C or blank")
)

// RowError describes the first rule a row violated.
type RowError struct {
	Line  int    // 1-based, the header is line 1; 0 when unknown
	Field string // column name, empty for whole-row errors
	Value string
	Err   error
}

func (e *RowError) Error() string {
	msg := e.Err.Error()
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s [value: %q]", e.Field, msg, e.Value)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// AtLine returns a copy of the error bound to a line number.
func (e *RowError) AtLine(line int) *RowError {
	cp := *e
	cp.Line = line
	return &cp
}

func fieldError(col int, value string, err error) *RowError {
	return &RowError{Field: columnNames[col], Value: value, Err: err}
}
