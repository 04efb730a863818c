package model

import "fmt"

// CalendarCoordinate is the UTC calendar position of an instant.
type CalendarCoordinate struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
}

// Value returns the coordinate component for unit u.
func (c CalendarCoordinate) Value(u TimeUnit) int {
	switch u {
	case UnitYear:
		return c.Year
	case UnitMonth:
		return c.Month
	case UnitDay:
		return c.Day
	case UnitHour:
		return c.Hour
	case UnitMinute:
		return c.Minute
	}
	return 0
}

func (c CalendarCoordinate) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02dZ", c.Year, c.Month, c.Day, c.Hour, c.Minute)
}

// ResolvedView is the result of expanding one binding for one nominal time.
type ResolvedView struct {
	Binding   string    `json:"binding"`
	Direction Direction `json:"direction"`
	// Addresses are concrete view URIs ordered oldest first.
	Addresses []string `json:"addresses"`
	// Overridden is true when the addresses came from an external override
	// rather than template expansion.
	Overridden bool `json:"overridden,omitempty"`
}

// Single reports whether the view resolved to exactly one address.
func (r ResolvedView) Single() bool {
	return len(r.Addresses) == 1
}

// View is a concrete view handed to a job slot.
type View struct {
	Binding    string
	URI        string
	Direction  Direction
	RecordType string
}

func (v View) String() string {
	return v.URI
}

// Record is a single schema-less dataset record.
type Record = map[string]any

// Stream is a live, continuously arriving source bound to a stream slot.
// Records is closed when the source stops.
type Stream interface {
	Name() string
	Records() <-chan Record
}

// SlotKind is the shape a job slot expects.
type SlotKind string

const (
	SlotSingleView   SlotKind = "view"
	SlotViewList     SlotKind = "view-list"
	SlotStreamHandle SlotKind = "stream"
)

// JobParameterSlot describes one declared input or output of a job's Run method.
type JobParameterSlot struct {
	BindingName string    `json:"binding"`
	Direction   Direction `json:"direction"`
	RecordType  string    `json:"record_type,omitempty"`
	Kind        SlotKind  `json:"kind"`
	// Field is the Go field name in the job's argument struct.
	Field string `json:"field"`
}
