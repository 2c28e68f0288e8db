package gst

import (
	"regexp"
	"strings"
)

var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// stateNames maps GST state codes to the issuing jurisdiction.
var stateNames = map[string]string{
	"01": "Jammu and Kashmir",
	"02": "Himachal Pradesh",
	"03": "Punjab",
	"04": "Chandigarh",
	"05": "Uttarakhand",
	"06": "Haryana",
	"07": "Delhi",
	"08": "Rajasthan",
	"09": "Uttar Pradesh",
	"10": "Bihar",
	"11": "Sikkim",
	"12": "Arunachal Pradesh",
	"13": "Nagaland",
	"14": "Manipur",
	"15": "Mizoram",
	"16": "Tripura",
	"17": "Meghalaya",
	"18": "Assam",
	"19": "West Bengal",
	"20": "Jharkhand",
	"21": "Odisha",
	"22": "Chhattisgarh",
	"23": "Madhya Pradesh",
	"24": "Gujarat",
	"25": "Daman and Diu",
	"26": "Dadra and Nagar Haveli and Daman and Diu",
	"27": "Maharashtra",
	"28": "Andhra Pradesh (Old)",
	"29": "Karnataka",
	"30": "Goa",
	"31": "Lakshadweep",
	"32": "Kerala",
	"33": "Tamil Nadu",
	"34": "Puducherry",
	"35": "Andaman and Nicobar Islands",
	"36": "Telangana",
	"37": "Andhra Pradesh",
	"38": "Ladakh",
	"97": "Other Territory",
	"99": "Centre Jurisdiction",
}

// ValidStateCode reports whether code is a known two-digit GST state code.
func ValidStateCode(code string) bool {
	_, ok := stateNames[strings.TrimSpace(code)]
	return ok
}

// StateName returns the jurisdiction name for a state code, or "" when unknown.
func StateName(code string) string {
	return stateNames[strings.TrimSpace(code)]
}

// StateCodeFromGSTIN returns the state code prefix of a GST number when it is
// a known jurisdiction.
func StateCodeFromGSTIN(gstNo string) (string, bool) {
	gstNo = strings.TrimSpace(gstNo)
	if len(gstNo) < 2 {
		return "", false
	}
	code := gstNo[:2]
	if !ValidStateCode(code) {
		return "", false
	}
	return code, true
}

// NormalizeGSTIN upper-cases and trims a GST number.
func NormalizeGSTIN(gstNo string) string {
	return strings.ToUpper(strings.TrimSpace(gstNo))
}

// ValidGSTIN reports whether gstNo has the 15-character GSTIN shape.
func ValidGSTIN(gstNo string) bool {
	return gstinPattern.MatchString(gstNo)
}
