package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const EventChargeSuccess = "charge.success"

// PaystackEvent is the outer envelope of every webhook delivery.
type PaystackEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type PaystackChargeData struct {
	Reference     string                 `json:"reference"`
	Amount        *int64                 `json:"amount"` // minor units
	Currency      string                 `json:"currency"`
	Authorization *PaystackAuthorization `json:"authorization"`
	Customer      *PaystackCustomer      `json:"customer"`
}

type PaystackAuthorization struct {
	Last4    string     `json:"last4"`
	CardType string     `json:"card_type"`
	Brand    string     `json:"brand"`
	ExpMonth flexString `json:"exp_month"`
	ExpYear  flexString `json:"exp_year"`
}

type PaystackCustomer struct {
	Email string `json:"email"`
}

// flexString accepts both JSON strings and numbers; the gateway sends expiry either way.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

var ErrInvalidChargeData = errors.New("invalid charge data")

// ParseChargeData decodes and validates the data object of a charge.success event.
func ParseChargeData(raw json.RawMessage) (*PaystackChargeData, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: missing data", ErrInvalidChargeData)
	}
	var data PaystackChargeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChargeData, err)
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return &data, nil
}

func (d *PaystackChargeData) Validate() error {
	var missing []string
	if strings.TrimSpace(d.Reference) == "" {
		missing = append(missing, "reference")
	}
	if d.Amount == nil {
		missing = append(missing, "amount")
	} else if *d.Amount < 0 {
		return fmt.Errorf("%w: negative amount %d", ErrInvalidChargeData, *d.Amount)
	}
	if d.Authorization == nil {
		missing = append(missing, "authorization")
	} else if strings.TrimSpace(d.Authorization.Last4) == "" {
		missing = append(missing, "authorization.last4")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidChargeData, strings.Join(missing, ", "))
	}
	if _, err := d.Authorization.Summary(); err != nil {
		return err
	}
	return nil
}

// Summary converts the authorization block into the stored payment summary.
func (a *PaystackAuthorization) Summary() (PaymentSummary, error) {
	month, err := parseOptionalInt(string(a.ExpMonth))
	if err != nil {
		return PaymentSummary{}, fmt.Errorf("%w: exp_month: %v", ErrInvalidChargeData, err)
	}
	year, err := parseOptionalInt(string(a.ExpYear))
	if err != nil {
		return PaymentSummary{}, fmt.Errorf("%w: exp_year: %v", ErrInvalidChargeData, err)
	}

	brand := strings.TrimSpace(a.CardType)
	if brand == "" {
		brand = strings.TrimSpace(a.Brand)
	}
	if brand == "" {
		brand = "unknown"
	}

	return PaymentSummary{
		Last4:    strings.TrimSpace(a.Last4),
		Brand:    brand,
		ExpMonth: month,
		ExpYear:  year,
	}, nil
}

func parseOptionalInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
