package scope

import (
	"testing"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

func TestCompare_Equality(t *testing.T) {
	tests := []struct {
		op       domain.Operator
		actual   string
		expected interface{}
		want     bool
	}{
		{domain.OpEq, "ERBS", "ERBS", true},
		{domain.OpEq, "ERBS", "GNB", false},
		{domain.OpNe, "ERBS", "GNB", true},
		{domain.OpNe, "ERBS", "ERBS", false},
		{domain.OpContains, "Stockholm-North", "north", true},
		{domain.OpContains, "Stockholm-North", "south", false},
	}

	for _, tt := range tests {
		got, err := compare(tt.op, tt.actual, tt.expected)
		if err != nil {
			t.Errorf("%s(%q,%v): unexpected error %v", tt.op, tt.actual, tt.expected, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s(%q,%v) = %v, want %v", tt.op, tt.actual, tt.expected, got, tt.want)
		}
	}
}

func TestCompare_Numeric(t *testing.T) {
	tests := []struct {
		op       domain.Operator
		actual   string
		expected interface{}
		want     bool
	}{
		{domain.OpGt, "21.5", 21, true},
		{domain.OpGt, "20", 21, false},
		{domain.OpGte, "21", "21", true},
		{domain.OpLt, "19.9", 20, true},
		{domain.OpLte, "20", 20.0, true},
	}

	for _, tt := range tests {
		got, err := compare(tt.op, tt.actual, tt.expected)
		if err != nil {
			t.Errorf("%s(%q,%v): unexpected error %v", tt.op, tt.actual, tt.expected, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s(%q,%v) = %v, want %v", tt.op, tt.actual, tt.expected, got, tt.want)
		}
	}
}

func TestCompare_NumericRejectsNonNumeric(t *testing.T) {
	if _, err := compare(domain.OpGt, "not-a-number", 5); err == nil {
		t.Error("expected error for non-numeric actual value")
	}
	if _, err := compare(domain.OpLt, "5", "not-a-number"); err == nil {
		t.Error("expected error for non-numeric condition value")
	}
}

func TestCompare_Membership(t *testing.T) {
	list := []interface{}{"ERBS", "GNB"}

	if got, _ := compare(domain.OpIn, "ERBS", list); !got {
		t.Error("expected ERBS in list")
	}
	if got, _ := compare(domain.OpIn, "MSC", list); got {
		t.Error("expected MSC not in list")
	}
	if got, _ := compare(domain.OpNotIn, "MSC", list); !got {
		t.Error("expected MSC not_in list")
	}

	// Comma-separated string form.
	if got, _ := compare(domain.OpIn, "GNB", "ERBS, GNB"); !got {
		t.Error("expected GNB in comma list")
	}
}

func TestCompare_Regex(t *testing.T) {
	got, err := compare(domain.OpRegex, "ERBS001", "^ERBS[0-9]+$")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Error("expected regex match")
	}

	if _, err := compare(domain.OpRegex, "x", "[bad"); err == nil {
		t.Error("expected invalid regex error")
	}
}

func TestCompare_UnknownOperator(t *testing.T) {
	if _, err := compare("like", "a", "b"); err == nil {
		t.Error("expected unknown operator error")
	}
}
