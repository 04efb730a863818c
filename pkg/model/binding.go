package model

import (
	"fmt"
	"strings"
	"time"
)

// Direction says whether a binding is read or written by a job.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// ParseDirection accepts "in"/"out" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in":
		return DirectionIn, nil
	case "out":
		return DirectionOut, nil
	}
	return "", fmt.Errorf("unknown direction %q (want in or out)", s)
}

// TimeUnit is a calendar granularity. Units are ordered coarse to fine, so a
// larger value is a finer unit.
type TimeUnit int

const (
	UnitNone TimeUnit = iota
	UnitYear
	UnitMonth
	UnitDay
	UnitHour
	UnitMinute
)

var unitNames = map[TimeUnit]string{
	UnitYear:   "YEAR",
	UnitMonth:  "MONTH",
	UnitDay:    "DAY",
	UnitHour:   "HOUR",
	UnitMinute: "MINUTE",
}

// Units lists the recognized units from coarsest to finest.
var Units = []TimeUnit{UnitYear, UnitMonth, UnitDay, UnitHour, UnitMinute}

// Placeholder returns the template placeholder name for the unit, e.g. "HOUR".
func (u TimeUnit) Placeholder() string {
	return unitNames[u]
}

func (u TimeUnit) String() string {
	if n, ok := unitNames[u]; ok {
		return strings.ToLower(n)
	}
	return "none"
}

// Valid reports whether u is one of the five calendar units.
func (u TimeUnit) Valid() bool {
	_, ok := unitNames[u]
	return ok
}

// Duration returns the fixed length of minute, hour and day steps in UTC.
// Month and year steps have no fixed length and return 0.
func (u TimeUnit) Duration() time.Duration {
	switch u {
	case UnitMinute:
		return time.Minute
	case UnitHour:
		return time.Hour
	case UnitDay:
		return 24 * time.Hour
	}
	return 0
}

// UnitForPlaceholder maps a placeholder name (case-sensitive) to its unit.
func UnitForPlaceholder(name string) (TimeUnit, bool) {
	for u, n := range unitNames {
		if n == name {
			return u, true
		}
	}
	return UnitNone, false
}

// ParseTimeUnit accepts "minute", "HOUR", etc. The empty string yields UnitNone.
func ParseTimeUnit(s string) (TimeUnit, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnitNone, nil
	}
	if u, ok := UnitForPlaceholder(strings.ToUpper(s)); ok {
		return u, nil
	}
	return UnitNone, fmt.Errorf("unknown time unit %q", s)
}

// ViewBinding declares a named, templated view read or written by a job.
type ViewBinding struct {
	Name        string    `yaml:"name" json:"name"`
	URITemplate string    `yaml:"uri" json:"uri"`
	Direction   Direction `yaml:"direction" json:"direction"`
	// WindowSize is the number of consecutive instances to resolve; 0 means 1.
	WindowSize int `yaml:"window,omitempty" json:"window,omitempty"`
	// Unit is the window step. UnitNone means the finest placeholder in
	// URITemplate.
	Unit TimeUnit `yaml:"-" json:"-"`
}

// Window returns the effective window size.
func (b ViewBinding) Window() int {
	if b.WindowSize == 0 {
		return 1
	}
	return b.WindowSize
}
