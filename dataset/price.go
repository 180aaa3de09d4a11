package dataset

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/errgo.v1"
)

// Price holds a commodity price: either a fixed value or a factor
// applied to a named per-timestep price series. The variant is
// decided when the dataset is loaded, not at model build time.
type Price struct {
	// Value holds the fixed price. Only meaningful when Series
	// is empty.
	Value float64

	// Factor scales the series when Series is non-empty.
	Factor float64

	// Series names an entry of Dataset.BuySellPrices.
	Series string
}

// FixedPrice returns a fixed price.
func FixedPrice(v float64) Price {
	return Price{Value: v}
}

// SeriesPrice returns a price of factor times the named series.
func SeriesPrice(factor float64, series string) Price {
	return Price{Factor: factor, Series: series}
}

// IsSeries reports whether the price refers to a timeseries.
func (p Price) IsSeries() bool {
	return p.Series != ""
}

// String returns the price in the form accepted by ParsePrice.
func (p Price) String() string {
	if !p.IsSeries() {
		return strconv.FormatFloat(p.Value, 'g', -1, 64)
	}
	return strconv.FormatFloat(p.Factor, 'g', -1, 64) + "x" + p.Series
}

// At returns the effective price at series offset i, looking the
// series up in prices. It returns an error for an unknown series or
// an offset beyond the series length.
func (p Price) At(prices map[string][]float64, i int) (float64, error) {
	if !p.IsSeries() {
		return p.Value, nil
	}
	series, ok := prices[p.Series]
	if !ok {
		return 0, errgo.Newf("unknown price series %q", p.Series)
	}
	if i < 0 || i >= len(series) {
		return 0, errgo.Newf("price series %q has no value at offset %d", p.Series, i)
	}
	return p.Factor * series[i], nil
}

// markerClass matches the first character that ends the numeric part
// of a price string.
var markerClass = "*:!%$&?"

// ParsePrice parses a price field. A plain number gives a fixed
// price. A number followed by a series reference, such as "1.25xBuy"
// or "0.9*Elec sell", gives a factor times that series; a bare series
// name means factor 1. The numeric part accepts both decimal-point
// ("1,000.25") and decimal-comma ("1.000,25") locale conventions.
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Price{}, errgo.New("empty price")
	}
	marker := -1
	for i, r := range s {
		if strings.ContainsRune(markerClass, r) || unicode.IsLetter(r) {
			marker = i
			break
		}
	}
	if marker == -1 {
		v, err := parseLocaleNumber(s)
		if err != nil {
			return Price{}, errgo.Newf("invalid price %q", s)
		}
		return FixedPrice(v), nil
	}
	factor := 1.0
	if num := strings.TrimSpace(s[:marker]); num != "" {
		v, err := parseLocaleNumber(num)
		if err != nil {
			return Price{}, errgo.Newf("invalid price %q", s)
		}
		factor = v
	}
	series := seriesName(s[marker:])
	if series == "" {
		return Price{}, errgo.Newf("invalid price %q", s)
	}
	return SeriesPrice(factor, series), nil
}

// seriesName strips leading marker characters (and a single 'x'
// multiplication sign) so that "xBuy", "*Buy" and "Buy" all name the
// series "Buy".
func seriesName(s string) string {
	s = strings.TrimLeft(s, markerClass+" ")
	if strings.HasPrefix(s, "x") {
		if rest := strings.TrimSpace(s[1:]); rest != "" && !unicode.IsLower(rune(rest[0])) {
			s = rest
		}
	}
	return strings.TrimSpace(s)
}

var (
	commaGrouped = regexp.MustCompile(`^(\d+|\d{1,3}(,\d{3})*)(\.\d+)?$`)
	dotGrouped   = regexp.MustCompile(`^(\d+|\d{1,3}(\.\d{3})*)(,\d+)?$`)
	dotDecimal   = regexp.MustCompile(`^\d*\.?\d+$`)
	commaDecimal = regexp.MustCompile(`^\d*,?\d+$`)
)

// parseLocaleNumber parses a non-negative number written with either
// comma-grouped thousands and a decimal point or dot-grouped
// thousands and a decimal comma. Grouping interpretations are tried
// first, so "1.000" is one thousand, not one.
func parseLocaleNumber(s string) (float64, error) {
	switch {
	case commaGrouped.MatchString(s):
		s = strings.Replace(s, ",", "", -1)
	case dotGrouped.MatchString(s):
		s = strings.Replace(s, ".", "", -1)
		s = strings.Replace(s, ",", ".", 1)
	case dotDecimal.MatchString(s):
		// Already in canonical form.
	case commaDecimal.MatchString(s):
		s = strings.Replace(s, ",", ".", 1)
	default:
		return 0, fmt.Errorf("malformed number %q", s)
	}
	return strconv.ParseFloat(s, 64)
}
