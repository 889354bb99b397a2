package overtime

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/generic"
)

// =============================================================================
// NUMBER - Optional numeric value that may hold garbage
// =============================================================================

// Number is an optional float as it arrives from configuration and overrides.
// It remembers non-finite values (NaN from a "NaN" string, ±Inf) so that
// resolution can treat them as absent instead of failing to decode.
type Number struct {
	Value float64
	Set   bool
}

// Num builds a set Number.
func Num(v float64) Number { return Number{Value: v, Set: true} }

// Get returns the value only when it is set and finite.
func (n Number) Get() (float64, bool) {
	if !n.Set || !generic.IsFinite(n.Value) {
		return 0, false
	}
	return n.Value, true
}

// IsZero lets encoding/json omitzero drop unset numbers.
func (n Number) IsZero() bool { return !n.Set }

// Decimal returns the value as a decimal when usable.
func (n Number) Decimal() (decimal.Decimal, bool) {
	v, ok := n.Get()
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(v), true
}

// DecimalOr returns the decimal value or def.
func (n Number) DecimalOr(def decimal.Decimal) decimal.Decimal {
	if d, ok := n.Decimal(); ok {
		return d
	}
	return def
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	if v, ok := parseLenientFloat(data); ok {
		*n = Num(v)
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	v, ok := n.Get()
	if !ok {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// =============================================================================
// RATE - Hourly rate as a bare number or an {amount, currency} object
// =============================================================================

// Rate is an hourly rate candidate. A nil *Rate is an absent candidate.
type Rate struct {
	Amount   float64
	Currency string
}

// NewRate builds a rate in the default currency.
func NewRate(amount float64) *Rate {
	return &Rate{Amount: amount, Currency: generic.DefaultCurrency}
}

// value returns the amount when finite.
func (r *Rate) value() (decimal.Decimal, bool) {
	if r == nil {
		return decimal.Zero, false
	}
	return generic.DecimalFromFloat(r.Amount)
}

func (r *Rate) UnmarshalJSON(data []byte) error {
	*r = Rate{Amount: math.NaN()}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj struct {
			Amount   json.RawMessage `json:"amount"`
			Currency json.RawMessage `json:"currency"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil
		}
		if v, ok := parseLenientFloat(obj.Amount); ok {
			r.Amount = v
		}
		r.Currency = lenientString(obj.Currency)
		return nil
	}
	if v, ok := parseLenientFloat(trimmed); ok {
		r.Amount = v
	}
	return nil
}

func (r Rate) MarshalJSON() ([]byte, error) {
	if !generic.IsFinite(r.Amount) {
		return []byte("null"), nil
	}
	currency := r.Currency
	if currency == "" {
		currency = generic.DefaultCurrency
	}
	return json.Marshal(struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	}{r.Amount, currency})
}

// =============================================================================
// LENIENT DECODING HELPERS
// =============================================================================

// parseLenientFloat accepts a JSON number or a numeric string. Anything else
// (null, bool, object, non-numeric text) is absent. Non-finite strings such as
// "NaN" parse successfully and are rejected later by Number.Get.
func parseLenientFloat(data []byte) (float64, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, false
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return 0, false
	}
	return v, true
}

// lenientString accepts a JSON string or number. Anything else is "".
func lenientString(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(trimmed)
	}
	return ""
}

// lenientBool keeps the tri-state: nil when absent, null, or not a bool.
func lenientBool(data []byte) *bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var b bool
	if err := json.Unmarshal(trimmed, &b); err != nil {
		return nil
	}
	return &b
}
