package model

import "testing"

func TestContextState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from  ContextState
		to    ContextState
		valid bool
	}{
		// Valid transitions
		{ContextStateUninitialized, ContextStateActive, true},
		{ContextStateUninitialized, ContextStateShutdown, true},
		{ContextStateActive, ContextStateShutdown, true},
		{ContextStateShutdown, ContextStateUninitialized, true},

		// Invalid transitions
		{ContextStateActive, ContextStateUninitialized, false},
		{ContextStateActive, ContextStateActive, false},
		{ContextStateShutdown, ContextStateActive, false},
		{ContextStateUninitialized, ContextStateUninitialized, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.valid {
			t.Errorf("ContextState(%q).CanTransitionTo(%q) = %v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}

func TestContextState_String(t *testing.T) {
	if got := ContextStateActive.String(); got != "ACTIVE" {
		t.Errorf("String() = %q, want ACTIVE", got)
	}
}

func TestParseTimeUnit(t *testing.T) {
	tests := []struct {
		input   string
		want    TimeUnit
		wantErr bool
	}{
		{"", UnitNone, false},
		{"minute", UnitMinute, false},
		{"HOUR", UnitHour, false},
		{" Day ", UnitDay, false},
		{"month", UnitMonth, false},
		{"year", UnitYear, false},
		{"week", UnitNone, true},
	}
	for _, tt := range tests {
		got, err := ParseTimeUnit(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimeUnit(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimeUnit(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestTimeUnit_Ordering(t *testing.T) {
	for i := 1; i < len(Units); i++ {
		if Units[i] <= Units[i-1] {
			t.Errorf("unit %v should be finer than %v", Units[i], Units[i-1])
		}
	}
	if UnitMinute.Placeholder() != "MINUTE" {
		t.Errorf("Placeholder() = %q, want MINUTE", UnitMinute.Placeholder())
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection("IN"); err != nil || d != DirectionIn {
		t.Errorf("ParseDirection(IN) = %v, %v", d, err)
	}
	if d, err := ParseDirection("out"); err != nil || d != DirectionOut {
		t.Errorf("ParseDirection(out) = %v, %v", d, err)
	}
	if _, err := ParseDirection("both"); err == nil {
		t.Error("ParseDirection(both) should fail")
	}
}

func TestViewBinding_Window(t *testing.T) {
	if got := (ViewBinding{}).Window(); got != 1 {
		t.Errorf("Window() = %d, want 1", got)
	}
	if got := (ViewBinding{WindowSize: 3}).Window(); got != 3 {
		t.Errorf("Window() = %d, want 3", got)
	}
}
