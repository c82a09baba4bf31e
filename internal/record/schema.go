// Package record validates detail rows of a BIN range file against the
// fixed 25 column layout and its business rules.
package record

// FieldCount is the number of columns in a detail row.
const FieldCount = 25

// MaxRowBytes bounds a single row of a file.
const MaxRowBytes = 1 << 20

// minFieldCount allows the trailing reserved columns to be omitted.
const minFieldCount = FieldCount - 7

// Column positions.
const (
	colRecordType = iota
	colLowerRange
	colUpperRange
	colProductType
	colSchemeBrandName
	colIssuerName
	colCountryAlpha
	colCountryNumeric
	colCountryName
	colCardClass
	colCurrencyCode
	colDCCFlag
	colSchemeProduct
	colAnonPrepaid
	colGamingOCT
	colTokenised
	colPANLength
	colFastFunds
	colReserved19
)

var columnNames = [FieldCount]string{
	"RECORD_TYPE",
	"BIN_LOWER_RANGE",
	"BIN_UPPER_RANGE",
	"PRODUCT_TYPE",
	"CARD_SCHEME_BRAND_NAME",
	"ISSUER_NAME",
	"ISSUER_COUNTRY_CODE",
	"ISSUER_COUNTRY_CODE_NUMERIC",
	"ISSUER_COUNTRY_NAME",
	"CARD_CLASS",
	"CARDHOLDER_CURRENCY_CODE",
	"DCC_FLAG",
	"SCHEME_PRODUCT",
	"ANON_PREPAID_MARKER",
	"ACCEPTS_GAMING_OCT_PAYMENTS",
	"TOKENISED_FLAG",
	"PAN_LENGTH",
	"FAST_FUNDS_INDICATOR",
	"RESERVED_19",
	"RESERVED_20",
	"RESERVED_21",
	"RESERVED_22",
	"RESERVED_23",
	"RESERVED_24",
	"RESERVED_25",
}

const (
	separator    = ","
	rangeLength  = 18
	brandMinLen  = 2
	brandMaxLen  = 30
	issuerMinLen = 2
	issuerMaxLen = 80
	isoCodeLen   = 3
	maxPANLength = 19
)

// Schema is the immutable rule set applied to every detail row.
// Use Standard or Extended; both are built once at package init.
type Schema struct {
	extended bool
}

var (
	standardSchema = newSchema(false)
	extendedSchema = newSchema(true)
)

func newSchema(extended bool) *Schema {
	return &Schema{extended: extended}
}

// Standard returns the schema accepting card classes C, D and P.
func Standard() *Schema {
	return standardSchema
}

// Extended returns the schema that also accepts the V04 card classes H and R.
func Extended() *Schema {
	return extendedSchema
}

// ForOptions picks the schema for the extended card class setting.
func ForOptions(extended bool) *Schema {
	if extended {
		return extendedSchema
	}
	return standardSchema
}

// IsExtended reports whether the schema accepts the V04 card classes.
func (s *Schema) IsExtended() bool {
	return s.extended
}

// ColumnName returns the published name of a column index.
func ColumnName(i int) string {
	if i < 0 || i >= FieldCount {
		return ""
	}
	return columnNames[i]
}
