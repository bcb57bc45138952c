package normalize

// Field aliases tried in order when a record carries a date/value pair.
var (
	DateFields  = []string{"date", "Date", "t", "time", "x", "label"}
	ValueFields = []string{"nav", "NAV", "value", "y", "close", "price", "v"}
)

// ResolvePair extracts the raw date and value from a decoded element. Records
// are looked up by alias, tuples positionally. Values are not normalized.
func ResolvePair(item any) (date, value any, ok bool) {
	switch x := item.(type) {
	case map[string]any:
		date, okDate := firstField(x, DateFields)
		value, okValue := firstField(x, ValueFields)
		if !okDate || !okValue {
			return nil, nil, false
		}
		return date, value, true
	case []any:
		if len(x) < 2 || x[0] == nil || x[1] == nil {
			return nil, nil, false
		}
		return x[0], x[1], true
	default:
		return nil, nil, false
	}
}

func firstField(m map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Pair normalizes a raw element into a canonical date and value.
func Pair(item any) (string, float64, bool) {
	rawDate, rawValue, ok := ResolvePair(item)
	if !ok {
		return "", 0, false
	}
	d, ok := DateValue(rawDate)
	if !ok {
		return "", 0, false
	}
	v, ok := NumberValue(rawValue)
	if !ok {
		return "", 0, false
	}
	return d, v, true
}
