package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParamInt converts a hyperparameter value to int. Parameter grids may hold
// int, int64, whole float64 values (as decoded from config files) or numeric
// strings. nil converts to 0, which estimators read as "no limit".
func ParamInt(v interface{}) (int, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int:
		return x, nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%v is not a whole number", x)
		}
		return int(x), nil
	case string:
		return strconv.Atoi(x)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

// ParamInt64 is ParamInt for int64 values such as random seeds.
func ParamInt64(v interface{}) (int64, error) {
	if x, ok := v.(int64); ok {
		return x, nil
	}
	i, err := ParamInt(v)
	return int64(i), err
}

// ParamFloat converts a hyperparameter value to float64.
func ParamFloat(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

// ParamString converts a hyperparameter value to string.
func ParamString(v interface{}) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		return "", fmt.Errorf("unsupported type %T", v)
	}
}

// ParamBool converts a hyperparameter value to bool.
func ParamBool(v interface{}) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(x)
	default:
		return false, fmt.Errorf("unsupported type %T", v)
	}
}

// FormatParam renders a hyperparameter value the way scikit-learn prints it;
// a zero depth limit prints as None.
func FormatParam(name string, v interface{}) string {
	if v == nil {
		return "None"
	}
	if name == "max_depth" || strings.HasSuffix(name, "__max_depth") {
		if d, err := ParamInt(v); err == nil && d == 0 {
			return "None"
		}
	}
	return fmt.Sprintf("%v", v)
}
