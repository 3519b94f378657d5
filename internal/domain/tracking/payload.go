package tracking

import (
	"time"
)

// Payload is the body of a pharmacy status callback.
type Payload struct {
	OrderLineID         *string    `json:"order_line_id"`
	VitaluxeOrderNumber *string    `json:"vitaluxe_order_number"`
	Status              string     `json:"status"`
	TrackingNumber      *string    `json:"tracking_number"`
	Carrier             *string    `json:"carrier"`
	StatusDetails       *string    `json:"status_details"`
	Location            *string    `json:"location"`
	EstimatedDelivery   *time.Time `json:"estimated_delivery"`
	ActualDelivery      *time.Time `json:"actual_delivery"`
}

// ValidationResult carries every violation found in a payload, not just the
// first, so the pharmacy gets a complete error list in one response.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidatePayload checks a decoded webhook body. The value is whatever
// json.Unmarshal produced for the raw document; anything but a JSON object
// is rejected outright.
func ValidatePayload(value interface{}) ValidationResult {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return ValidationResult{Errors: []string{"payload must be a JSON object"}}
	}

	var errs []string
	if !hasString(obj, "order_line_id") && !hasString(obj, "vitaluxe_order_number") {
		errs = append(errs, "order_line_id or vitaluxe_order_number is required")
	}
	if !hasString(obj, "status") {
		errs = append(errs, "status is required")
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func hasString(obj map[string]interface{}, key string) bool {
	s, ok := obj[key].(string)
	return ok && s != ""
}
