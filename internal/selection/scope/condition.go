package scope

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// compare evaluates one leaf condition's operator against an actual value.
// Numeric operators parse both sides as floats and fail loudly on
// non-numeric input.
func compare(op domain.Operator, actual string, expected interface{}) (bool, error) {
	switch op {
	case domain.OpEq:
		return actual == toString(expected), nil
	case domain.OpNe:
		return actual != toString(expected), nil
	case domain.OpGt, domain.OpGte, domain.OpLt, domain.OpLte:
		return compareNumeric(op, actual, expected)
	case domain.OpIn:
		return member(actual, expected), nil
	case domain.OpNotIn:
		return !member(actual, expected), nil
	case domain.OpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(toString(expected))), nil
	case domain.OpRegex:
		re, err := regexp.Compile(toString(expected))
		if err != nil {
			return false, fmt.Errorf("invalid regex %q: %w", toString(expected), err)
		}
		return re.MatchString(actual), nil
	}
	return false, fmt.Errorf("unknown operator %q", op)
}

func compareNumeric(op domain.Operator, actual string, expected interface{}) (bool, error) {
	a, err := strconv.ParseFloat(strings.TrimSpace(actual), 64)
	if err != nil {
		return false, fmt.Errorf("non-numeric attribute value %q for %s", actual, op)
	}
	e, err := toFloat(expected)
	if err != nil {
		return false, fmt.Errorf("non-numeric condition value %v for %s", expected, op)
	}

	switch op {
	case domain.OpGt:
		return a > e, nil
	case domain.OpGte:
		return a >= e, nil
	case domain.OpLt:
		return a < e, nil
	case domain.OpLte:
		return a <= e, nil
	}
	return false, fmt.Errorf("unknown numeric operator %q", op)
}

// member checks membership in a list value. Lists arrive either as YAML
// sequences or comma-separated strings.
func member(actual string, expected interface{}) bool {
	switch v := expected.(type) {
	case []interface{}:
		for _, item := range v {
			if actual == toString(item) {
				return true
			}
		}
		return false
	case []string:
		for _, item := range v {
			if actual == item {
				return true
			}
		}
		return false
	default:
		for _, item := range strings.Split(toString(expected), ",") {
			if actual == strings.TrimSpace(item) {
				return true
			}
		}
		return false
	}
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, fmt.Errorf("cannot parse %T as number", v)
	}
}
