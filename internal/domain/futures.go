// Package domain holds the plain records shared by the spread scanner: settlement rows,
// spread rows, leg sides and the futures month calendar.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of settlement dates.
const DateLayout = "2006-01-02"

// MonthCodes are the futures delivery month codes in calendar order; the index is the month value
// used by the leg iterator (F = 0 ... Z = 11).
var MonthCodes = [12]string{"F", "G", "H", "J", "K", "M", "N", "Q", "U", "V", "X", "Z"}

// MonthIndex returns the month value for a delivery month code.
func MonthIndex(code string) (int, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for i, c := range MonthCodes {
		if c == code {
			return i, true
		}
	}
	return 0, false
}

// MonthCode returns the delivery month code for a month value.
func MonthCode(month int) (string, bool) {
	if month < 0 || month >= len(MonthCodes) {
		return "", false
	}
	return MonthCodes[month], true
}

// ContractID builds a contract identity such as "F21" from a month code and a calendar year.
func ContractID(monthCode string, year int) string {
	return fmt.Sprintf("%s%02d", monthCode, ((year%100)+100)%100)
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Side is the direction of a spread leg.
type Side int

const (
	// SideLong adds the leg's settlement to the spread
	SideLong Side = 1
	// SideShort subtracts the leg's settlement from the spread
	SideShort Side = -1
)

// ParseSide accepts the leg-spec codes ("A" long, "B" short) as well as "+"/"-" and long/short.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "+", "long":
		return SideLong, nil
	case "b", "-", "short":
		return SideShort, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

// Sign returns +1 for long legs and -1 for short legs.
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// String renders the side as the sign prefix used in spread identities.
func (s Side) String() string {
	if s == SideShort {
		return "-"
	}
	return "+"
}

// Code renders the side as its leg-spec code.
func (s Side) Code() string {
	if s == SideShort {
		return "B"
	}
	return "A"
}

// Mode selects how legs are bound to contracts.
type Mode string

const (
	// ModeCalendar binds legs by explicit delivery month and year offset
	ModeCalendar Mode = "calendar"
	// ModeSequence binds legs by rank in each date's term structure
	ModeSequence Mode = "sequence"
)

// Valid reports whether the mode is one of the supported modes.
func (m Mode) Valid() bool {
	return m == ModeCalendar || m == ModeSequence
}
