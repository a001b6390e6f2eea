package utils

import (
	"strings"

	"github.com/ttacon/libphonenumber"
)

// NormalizePhone formats a valid number in international form using region
// for national numbers. Anything unparseable is returned trimmed, unchanged.
func NormalizePhone(raw, region string) string {
	phone := strings.TrimSpace(raw)
	if phone == "" {
		return ""
	}

	p, err := libphonenumber.Parse(phone, region)
	if err != nil || !libphonenumber.IsValidNumber(p) {
		return phone
	}
	return libphonenumber.Format(p, libphonenumber.INTERNATIONAL)
}
