package domain

import "fmt"

// ProductType classifies the card holder segment.
type ProductType string

const (
	ProductTypeCommercial ProductType = "CP"
	ProductTypeConsumer   ProductType = "CN"
)

var productTypeDescriptions = map[ProductType]string{
	ProductTypeCommercial: "Commercial or Corporate Card",
	ProductTypeConsumer:   "Consumer Card",
}

// IsValid checks if the product type is a valid value.
func (p ProductType) IsValid() bool {
	_, ok := productTypeDescriptions[p]
	return ok
}

// Description returns the published meaning of the code.
func (p ProductType) Description() string {
	return productTypeDescriptions[p]
}

// ParseProductType parses a product type code.
func ParseProductType(s string) (ProductType, error) {
	p := ProductType(s)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: unknown product type %q", ErrValidation, s)
	}
	return p, nil
}

// CardClass is the funding class of a card range.
type CardClass string

const (
	CardClassCredit        CardClass = "C"
	CardClassDebit         CardClass = "D"
	CardClassCharge        CardClass = "H" // V04 only
	CardClassPrepaid       CardClass = "P"
	CardClassDeferredDebit CardClass = "R" // V04 only
)

var cardClassDescriptions = map[CardClass]string{
	CardClassCredit:        "Credit",
	CardClassDebit:         "Debit",
	CardClassCharge:        "Charge Card (V4)",
	CardClassPrepaid:       "Prepaid",
	CardClassDeferredDebit: "Deferred Debit (V4)",
}

// IsValid checks if the card class is any published value, including V04 extensions.
func (c CardClass) IsValid() bool {
	_, ok := cardClassDescriptions[c]
	return ok
}

// IsExtended reports whether the class only exists in the extended format.
func (c CardClass) IsExtended() bool {
	return c == CardClassCharge || c == CardClassDeferredDebit
}

// Description returns the published meaning of the code.
func (c CardClass) Description() string {
	return cardClassDescriptions[c]
}

// ParseCardClass parses a card class code.
func ParseCardClass(s string) (CardClass, error) {
	c := CardClass(s)
	if !c.IsValid() {
		return "", fmt.Errorf("%w: unknown card class %q", ErrValidation, s)
	}
	return c, nil
}

// DCCFlag marks ranges where dynamic currency conversion is allowed.
// The empty value means not allowed.
type DCCFlag string

const (
	DCCFlagNone    DCCFlag = ""
	DCCFlagAllowed DCCFlag = "DCC allowed"
)

// IsValid checks if the flag is blank or the allowed literal.
func (d DCCFlag) IsValid() bool {
	return d == DCCFlagNone || d == DCCFlagAllowed
}

// Allowed reports whether DCC is allowed.
func (d DCCFlag) Allowed() bool {
	return d == DCCFlagAllowed
}

// ParseDCCFlag parses a DCC flag.
func ParseDCCFlag(s string) (DCCFlag, error) {
	d := DCCFlag(s)
	if !d.IsValid() {
		return "", fmt.Errorf("%w: unknown DCC flag %q", ErrValidation, s)
	}
	return d, nil
}

// SchemeProduct is the card scheme's product code.
// Informational: unrecognized codes are carried through and not rejected.
type SchemeProduct string

var knownSchemeProducts = map[SchemeProduct]struct{}{
	"AC000": {}, "ACMCW": {}, "ACMCY": {}, "ACMNW": {}, "AS000": {}, "AX000": {},
	"BC000": {}, "DC000": {}, "DE000": {}, "DECOM": {}, "DM000": {}, "DMCOM": {},
	"LS000": {}, "JC000": {}, "KF000": {}, "OD000": {}, "PE000": {}, "PECRE": {},
	"PM000": {}, "PMCOM": {}, "SC000": {}, "SE000": {}, "VP002": {}, "VPMCB": {},
	"VPMCF": {}, "VPMCO": {}, "VPMCP": {}, "VPMCX": {}, "VPVIB": {}, "VPVID": {},
	"VPVIR": {}, "VPVIS": {},
}

// IsKnown reports whether the code is in the published product list.
func (s SchemeProduct) IsKnown() bool {
	_, ok := knownSchemeProducts[s]
	return ok
}

// AnonymousPrepaidCardMarker describes anonymous prepaid status.
type AnonymousPrepaidCardMarker string

const (
	AnonymousPrepaidAnonymous    AnonymousPrepaidCardMarker = "A"
	AnonymousPrepaidExempt       AnonymousPrepaidCardMarker = "E"
	AnonymousPrepaidNotAnonymous AnonymousPrepaidCardMarker = "N"
	AnonymousPrepaidUnknown      AnonymousPrepaidCardMarker = "U"
)

var anonymousPrepaidDescriptions = map[AnonymousPrepaidCardMarker]string{
	AnonymousPrepaidAnonymous:    "Anonymous prepaid program and not AMLD5 compliant",
	AnonymousPrepaidExempt:       "Anonymous prepaid program and AMLD5 compliant",
	AnonymousPrepaidNotAnonymous: "Not prepaid or non-anonymous prepaid program/default",
	AnonymousPrepaidUnknown:      "Unknown",
}

// IsValid checks if the marker is a valid value.
func (a AnonymousPrepaidCardMarker) IsValid() bool {
	_, ok := anonymousPrepaidDescriptions[a]
	return ok
}

// Description returns the meaning of the marker.
func (a AnonymousPrepaidCardMarker) Description() string {
	return anonymousPrepaidDescriptions[a]
}

// ParseAnonymousPrepaidCardMarker parses an anonymous prepaid marker.
func ParseAnonymousPrepaidCardMarker(s string) (AnonymousPrepaidCardMarker, error) {
	a := AnonymousPrepaidCardMarker(s)
	if !a.IsValid() {
		return "", fmt.Errorf("%w: unknown anonymous prepaid marker %q", ErrValidation, s)
	}
	return a, nil
}

// AcceptsGamingOCTPayments marks ranges accepting gaming original credit transactions.
// The empty value means not stated.
type AcceptsGamingOCTPayments string

const (
	GamingOCTNotStated AcceptsGamingOCTPayments = ""
	GamingOCTYes       AcceptsGamingOCTPayments = "Y"
	GamingOCTNo        AcceptsGamingOCTPayments = "N"
)

// IsValid checks if the flag is blank, Y or N.
func (g AcceptsGamingOCTPayments) IsValid() bool {
	return g == GamingOCTNotStated || g == GamingOCTYes || g == GamingOCTNo
}

// ParseAcceptsGamingOCTPayments parses a gaming OCT flag.
func ParseAcceptsGamingOCTPayments(s string) (AcceptsGamingOCTPayments, error) {
	g := AcceptsGamingOCTPayments(s)
	if !g.IsValid() {
		return "", fmt.Errorf("%w: unknown gaming OCT flag %q", ErrValidation, s)
	}
	return g, nil
}

// FastFundsIndicator describes fast funds support for the range.
// The empty value means not stated.
type FastFundsIndicator string

const (
	FastFundsNotStated FastFundsIndicator = ""
	FastFundsDomestic  FastFundsIndicator = "D"
	FastFundsNone      FastFundsIndicator = "N"
	FastFundsYes       FastFundsIndicator = "Y"
	FastFundsCross     FastFundsIndicator = "C"
)

var fastFundsDescriptions = map[FastFundsIndicator]string{
	FastFundsNotStated: "Not stated",
	FastFundsDomestic:  "Domestic Fast Funds supported only",
	FastFundsNone:      "Does not participate in Fast Funds",
	FastFundsYes:       "Domestic and Cross-Border Fast Funds supported",
	FastFundsCross:     "Cross-Border Fast Funds supported only",
}

// IsValid checks if the indicator is a valid value.
func (f FastFundsIndicator) IsValid() bool {
	_, ok := fastFundsDescriptions[f]
	return ok
}

// Description returns the meaning of the indicator.
func (f FastFundsIndicator) Description() string {
	return fastFundsDescriptions[f]
}

// ParseFastFundsIndicator parses a fast funds indicator.
func ParseFastFundsIndicator(s string) (FastFundsIndicator, error) {
	f := FastFundsIndicator(s)
	if !f.IsValid() {
		return "", fmt.Errorf("%w: unknown fast funds indicator %q", ErrValidation, s)
	}
	return f, nil
}
