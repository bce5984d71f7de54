package ingest

import (
	"fmt"
	"regexp"
)

var (
	marketPattern = regexp.MustCompile(`SRCH-I-(\w{3})`)
	makePattern   = regexp.MustCompile(`-MK_(.*?)-`)
	modelPattern  = regexp.MustCompile(`-MO_(.*?)-`)
	yearPattern   = regexp.MustCompile(`-YR_(.*)`)
	fourDigits    = regexp.MustCompile(`^\d{4}$`)
)

// AdGroupAttributes are the dimension keys encoded in an ad group name such as
// "SRCH-I-DAL-MK_Toyota-MO_Camry-YR_19".
type AdGroupAttributes struct {
	Market string
	Make   string
	Model  string
	Year   string
}

// ExtractAdGroupAttributes parses market, make, model and year out of an ad group name.
// The two-digit year suffix is expanded to 20YY.
func ExtractAdGroupAttributes(adGroup string) (AdGroupAttributes, error) {
	var attrs AdGroupAttributes
	var missing []string

	if m := marketPattern.FindStringSubmatch(adGroup); m != nil {
		attrs.Market = m[1]
	} else {
		missing = append(missing, "market")
	}
	if m := makePattern.FindStringSubmatch(adGroup); m != nil && m[1] != "" {
		attrs.Make = m[1]
	} else {
		missing = append(missing, "make")
	}
	if m := modelPattern.FindStringSubmatch(adGroup); m != nil && m[1] != "" {
		attrs.Model = m[1]
	} else {
		missing = append(missing, "model")
	}
	if m := yearPattern.FindStringSubmatch(adGroup); m != nil {
		attrs.Year = "20" + m[1]
	} else {
		missing = append(missing, "year")
	}

	if len(missing) > 0 {
		return AdGroupAttributes{}, fmt.Errorf("ad group %q: missing %v", adGroup, missing)
	}
	if !fourDigits.MatchString(attrs.Year) {
		return AdGroupAttributes{}, fmt.Errorf("ad group %q: year %q is not four digits", adGroup, attrs.Year)
	}
	return attrs, nil
}
