package domain

// Record type codes bracketing a BIN range file.
const (
	RecordTypeHeader  = "00"
	RecordTypeDetail  = "01"
	RecordTypeTrailer = "99"
)

// IssuerRecord is one validated detail row of a BIN range file.
// Field order matches the published column order.
type IssuerRecord struct {
	RecordType           string
	BINLowerRange        string // 18 digits, leading zeros significant
	BINUpperRange        string // 18 digits, leading zeros significant
	ProductType          ProductType
	SchemeBrandName      string
	IssuerName           string
	IssuerCountryAlpha   string // ISO 3166 alpha-3
	IssuerCountryNumeric string
	IssuerCountryName    string
	CardClass            CardClass
	CardholderCurrency   string // ISO 4217 alpha-3
	DCCFlag              DCCFlag
	SchemeProduct        SchemeProduct
	AnonymousPrepaid     AnonymousPrepaidCardMarker
	AcceptsGamingOCT     AcceptsGamingOCTPayments
	Tokenised            string
	PANLength            int
	FastFunds            FastFundsIndicator
	Reserved             [7]string
}
