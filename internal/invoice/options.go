package invoice

import (
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/gst-invoice/internal/common"
)

// PaymentTerms is the payment terms keyword printed on an invoice.
type PaymentTerms string

// Supported payment terms.
const (
	TermsImmediate PaymentTerms = "immediate"
	Terms7Days     PaymentTerms = "7days"
	Terms15Days    PaymentTerms = "15days"
	Terms30Days    PaymentTerms = "30days"
	Terms45Days    PaymentTerms = "45days"
	Terms60Days    PaymentTerms = "60days"
	TermsCustom    PaymentTerms = "custom"
)

var termDays = map[PaymentTerms]int{
	TermsImmediate: 0,
	Terms7Days:     7,
	Terms15Days:    15,
	Terms30Days:    30,
	Terms45Days:    45,
	Terms60Days:    60,
}

// Label returns the printable name of the terms.
func (t PaymentTerms) Label() string {
	switch t {
	case TermsImmediate:
		return "Immediate Payment"
	case TermsCustom:
		return "Custom Date"
	}
	if days, ok := termDays[t]; ok {
		return "Net " + strconv.Itoa(days) + " Days"
	}
	return string(t)
}

// Valid reports whether t is one of the supported keywords.
func (t PaymentTerms) Valid() bool {
	_, ok := termDays[t]
	return ok || t == TermsCustom
}

// TransportMode is how goods are dispatched.
type TransportMode string

// Supported transport modes.
const (
	TransportRoad    TransportMode = "road"
	TransportRail    TransportMode = "rail"
	TransportAir     TransportMode = "air"
	TransportShip    TransportMode = "ship"
	TransportCourier TransportMode = "courier"
)

// Valid reports whether m is a supported transport mode.
func (m TransportMode) Valid() bool {
	switch m {
	case TransportRoad, TransportRail, TransportAir, TransportShip, TransportCourier:
		return true
	}
	return false
}

// Label returns the printable name of the mode.
func (m TransportMode) Label() string {
	if !m.Valid() {
		return string(m)
	}
	s := string(m)
	return "By " + strings.ToUpper(s[:1]) + s[1:]
}

// DateLayout is the wire format of due dates.
const DateLayout = "2006-01-02"

// Options carries the invoice-level settings chosen while drafting.
type Options struct {
	PaymentTerms  PaymentTerms  `json:"paymentTerms"`
	DueDate       string        `json:"dueDate"`
	Notes         string        `json:"notes"`
	TransportMode TransportMode `json:"transportMode"`
	VehicleNo     string        `json:"vehicleNo"`
}

// DueDateFor derives the due date for terms relative to now. Unknown terms
// and custom terms without a date fall back to thirty days.
func DueDateFor(terms PaymentTerms, now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	days, ok := termDays[terms]
	if !ok {
		days = 30
	}
	return today.AddDate(0, 0, days)
}

// DefaultOptions returns the options a new draft starts with.
func DefaultOptions(terms PaymentTerms, mode TransportMode, now time.Time) Options {
	if !terms.Valid() {
		terms = Terms30Days
	}
	if !mode.Valid() {
		mode = TransportRoad
	}
	return Options{
		PaymentTerms:  terms,
		DueDate:       DueDateFor(terms, now).Format(DateLayout),
		TransportMode: mode,
	}
}

// Normalize validates opts and fills the due date. Custom terms keep a
// provided date; every other keyword derives it from now.
func (o Options) Normalize(now time.Time) (Options, error) {
	o.PaymentTerms = PaymentTerms(strings.ToLower(strings.TrimSpace(string(o.PaymentTerms))))
	o.TransportMode = TransportMode(strings.ToLower(strings.TrimSpace(string(o.TransportMode))))
	o.DueDate = strings.TrimSpace(o.DueDate)
	o.Notes = strings.TrimSpace(o.Notes)
	o.VehicleNo = strings.ToUpper(strings.TrimSpace(o.VehicleNo))

	details := map[string]string{}
	if o.PaymentTerms == "" {
		o.PaymentTerms = Terms30Days
	}
	if !o.PaymentTerms.Valid() {
		details["paymentTerms"] = "must be one of immediate 7days 15days 30days 45days 60days custom"
	}
	if o.TransportMode == "" {
		o.TransportMode = TransportRoad
	}
	if !o.TransportMode.Valid() {
		details["transportMode"] = "must be one of road rail air ship courier"
	}
	if o.PaymentTerms == TermsCustom && o.DueDate != "" {
		if _, err := time.Parse(DateLayout, o.DueDate); err != nil {
			details["dueDate"] = "must be a date in YYYY-MM-DD form"
		}
	}
	if len(details) > 0 {
		return Options{}, common.ValidationError("invalid options", details)
	}

	if o.PaymentTerms != TermsCustom || o.DueDate == "" {
		o.DueDate = DueDateFor(o.PaymentTerms, now).Format(DateLayout)
	}
	return o, nil
}
