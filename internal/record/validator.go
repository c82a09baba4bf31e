package record

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"bin-ranges/internal/domain"
)

// SplitRow splits a raw row into its columns. The format has no quote character.
func SplitRow(line string) []string {
	return strings.Split(strings.TrimSuffix(line, "\r"), separator)
}

// RecordType returns the record type column of a raw row.
func RecordType(line string) string {
	rt, _, _ := strings.Cut(strings.TrimSuffix(line, "\r"), separator)
	return rt
}

// ValidateHeader checks that the first row of a file is a header row.
func ValidateHeader(line string) *RowError {
	if rt := RecordType(line); rt != domain.RecordTypeHeader {
		return &RowError{Line: 1, Field: columnNames[colRecordType], Value: rt, Err: ErrHeaderRecordType}
	}
	return nil
}

// ValidateTrailer checks that the last row of a file, at lineNo, is a trailer row.
func ValidateTrailer(lineNo int, line string) *RowError {
	if rt := RecordType(line); rt != domain.RecordTypeTrailer {
		return &RowError{Line: lineNo, Field: columnNames[colRecordType], Value: rt, Err: ErrTrailerRecordType}
	}
	return nil
}

// ValidateLine parses and validates one detail row found at lineNo.
func (s *Schema) ValidateLine(lineNo int, line string) error {
	if _, rerr := s.Parse(line); rerr != nil {
		return rerr.AtLine(lineNo)
	}
	return nil
}

// Parse validates a raw detail row and returns the typed record.
// The returned error identifies the first violated rule; its Line is unset.
func (s *Schema) Parse(line string) (domain.IssuerRecord, *RowError) {
	fields := SplitRow(line)
	if len(fields) < minFieldCount || len(fields) > FieldCount {
		return domain.IssuerRecord{}, &RowError{
			Value: strconv.Itoa(len(fields)),
			Err:   fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(fields), FieldCount),
		}
	}
	for len(fields) < FieldCount {
		fields = append(fields, "")
	}

	rec, rerr := s.build(fields)
	if rerr != nil {
		return domain.IssuerRecord{}, rerr
	}
	return rec, nil
}

// build applies the row rules in column order, converting each code column
// to its typed value, and stops at the first violation.
func (s *Schema) build(f []string) (domain.IssuerRecord, *RowError) {
	var (
		rec domain.IssuerRecord
		err error
	)
	if f[colRecordType] != domain.RecordTypeDetail {
		return rec, fieldError(colRecordType, f[colRecordType], ErrRecordType)
	}
	rec.RecordType = f[colRecordType]

	if rerr := checkRange(colLowerRange, f[colLowerRange], ErrLowerRangeLength, ErrLowerRangeNotNumeric); rerr != nil {
		return rec, rerr
	}
	if rerr := checkRange(colUpperRange, f[colUpperRange], ErrUpperRangeLength, ErrUpperRangeNotNumeric); rerr != nil {
		return rec, rerr
	}
	// Equal length digit strings order the same way as their integer values.
	if f[colLowerRange] > f[colUpperRange] {
		return rec, &RowError{
			Field: columnNames[colLowerRange],
			Value: f[colLowerRange],
			Err:   fmt.Errorf("%w [lower: %s] [upper: %s]", ErrRangeOrder, f[colLowerRange], f[colUpperRange]),
		}
	}
	rec.BINLowerRange, rec.BINUpperRange = f[colLowerRange], f[colUpperRange]

	if rec.ProductType, err = domain.ParseProductType(f[colProductType]); err != nil {
		return rec, fieldError(colProductType, f[colProductType], ErrProductType)
	}
	if !lengthBetween(f[colSchemeBrandName], brandMinLen, brandMaxLen) {
		return rec, fieldError(colSchemeBrandName, f[colSchemeBrandName], ErrSchemeBrandLength)
	}
	rec.SchemeBrandName = f[colSchemeBrandName]
	if !lengthBetween(f[colIssuerName], issuerMinLen, issuerMaxLen) {
		return rec, fieldError(colIssuerName, f[colIssuerName], ErrIssuerNameLength)
	}
	rec.IssuerName = f[colIssuerName]
	if !lengthBetween(f[colCountryAlpha], isoCodeLen, isoCodeLen) {
		return rec, fieldError(colCountryAlpha, f[colCountryAlpha], ErrCountryCodeLength)
	}
	rec.IssuerCountryAlpha = f[colCountryAlpha]
	rec.IssuerCountryNumeric = f[colCountryNumeric]
	rec.IssuerCountryName = f[colCountryName]

	rec.CardClass, err = domain.ParseCardClass(f[colCardClass])
	if err != nil || (rec.CardClass.IsExtended() && !s.extended) {
		return rec, fieldError(colCardClass, f[colCardClass], ErrCardClass)
	}
	if !lengthBetween(f[colCurrencyCode], isoCodeLen, isoCodeLen) {
		return rec, fieldError(colCurrencyCode, f[colCurrencyCode], ErrCurrencyCodeLength)
	}
	rec.CardholderCurrency = f[colCurrencyCode]
	if rec.DCCFlag, err = domain.ParseDCCFlag(f[colDCCFlag]); err != nil {
		return rec, fieldError(colDCCFlag, f[colDCCFlag], ErrDCCFlag)
	}
	rec.SchemeProduct = domain.SchemeProduct(f[colSchemeProduct])
	if rec.AnonymousPrepaid, err = domain.ParseAnonymousPrepaidCardMarker(f[colAnonPrepaid]); err != nil {
		return rec, fieldError(colAnonPrepaid, f[colAnonPrepaid], ErrAnonPrepaidMarker)
	}
	if rec.AcceptsGamingOCT, err = domain.ParseAcceptsGamingOCTPayments(f[colGamingOCT]); err != nil {
		return rec, fieldError(colGamingOCT, f[colGamingOCT], ErrGamingOCT)
	}
	if t := f[colTokenised]; t != "" && t != "Y" {
		return rec, fieldError(colTokenised, t, ErrTokenisedFlag)
	}
	rec.Tokenised = f[colTokenised]
	var rerr *RowError
	if rec.PANLength, rerr = parsePANLength(f[colPANLength]); rerr != nil {
		return rec, rerr
	}
	if rec.FastFunds, err = domain.ParseFastFundsIndicator(f[colFastFunds]); err != nil {
		return rec, fieldError(colFastFunds, f[colFastFunds], ErrFastFunds)
	}
	copy(rec.Reserved[:], f[colReserved19:])

	return rec, nil
}

func checkRange(col int, v string, lengthErr, digitErr error) *RowError {
	if len(v) != rangeLength {
		return &RowError{
			Field: columnNames[col],
			Value: v,
			Err:   fmt.Errorf("%w [actual: %d]", lengthErr, len(v)),
		}
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fieldError(col, v, digitErr)
		}
	}
	return nil
}

// parsePANLength reads the PAN length column; blank means 0.
func parsePANLength(v string) (int, *RowError) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fieldError(colPANLength, v, ErrPANLengthNotNumeric)
	}
	if n > maxPANLength {
		return 0, fieldError(colPANLength, v, ErrPANLengthTooLarge)
	}
	return n, nil
}

func lengthBetween(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}
