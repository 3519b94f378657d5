package tracking

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	return v
}

func TestValidatePayload(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		valid     bool
		numErrors int
	}{
		{"empty object", `{}`, false, 2},
		{"line id and status", `{"order_line_id":"x","status":"shipped"}`, true, 0},
		{"order number and status", `{"vitaluxe_order_number":"VL-1001","status":"delivered"}`, true, 0},
		{"missing status", `{"order_line_id":"x"}`, false, 1},
		{"missing identifier", `{"status":"shipped"}`, false, 1},
		{"empty strings count as missing", `{"order_line_id":"","status":""}`, false, 2},
		{"array payload", `[1,2,3]`, false, 1},
		{"string payload", `"hello"`, false, 1},
		{"null payload", `null`, false, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ValidatePayload(decode(t, tc.raw))
			if res.Valid != tc.valid {
				t.Errorf("Valid = %v, want %v (errors: %v)", res.Valid, tc.valid, res.Errors)
			}
			if len(res.Errors) != tc.numErrors {
				t.Errorf("errors = %v, want %d of them", res.Errors, tc.numErrors)
			}
		})
	}
}
