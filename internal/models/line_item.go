package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItemKind identifies where a cart entry came from
type LineItemKind string

const (
	LineItemKindPackage       LineItemKind = "package"
	LineItemKindAddon         LineItemKind = "addon"
	LineItemKindRepairService LineItemKind = "repair_service"
	LineItemKindCustom        LineItemKind = "custom"
)

var validLineItemKinds = map[LineItemKind]bool{
	LineItemKindPackage:       true,
	LineItemKindAddon:         true,
	LineItemKindRepairService: true,
	LineItemKindCustom:        true,
}

// ParseLineItemKind converts a string into a LineItemKind
func ParseLineItemKind(s string) (LineItemKind, error) {
	kind := LineItemKind(strings.ToLower(strings.TrimSpace(s)))
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid line item kind: %q", s)
	}
	return kind, nil
}

// IsValid reports whether the kind is one of the known values
func (k LineItemKind) IsValid() bool {
	return validLineItemKinds[k]
}

func (k LineItemKind) String() string {
	return string(k)
}

// Value implements driver.Valuer
func (k LineItemKind) Value() (driver.Value, error) {
	if !k.IsValid() {
		return nil, fmt.Errorf("invalid line item kind: %q", string(k))
	}
	return string(k), nil
}

// Scan implements sql.Scanner
func (k *LineItemKind) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		return fmt.Errorf("line item kind cannot be null")
	default:
		return fmt.Errorf("cannot scan %T into LineItemKind", value)
	}

	parsed, err := ParseLineItemKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// UnmarshalJSON rejects unknown kinds at the boundary
func (k *LineItemKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("line item kind must be a string: %w", err)
	}
	parsed, err := ParseLineItemKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// PricedLineItem is a single entry of a pending sale. Base prices exclude tax.
type PricedLineItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	BasePrice decimal.Decimal `json:"base_price"`
	Kind      LineItemKind    `json:"kind"`
}

// NewPricedLineItem creates a line item with a generated ID
func NewPricedLineItem(name string, basePrice decimal.Decimal, kind LineItemKind) PricedLineItem {
	return PricedLineItem{
		ID:        uuid.New().String(),
		Name:      name,
		BasePrice: basePrice,
		Kind:      kind,
	}
}

// Validate validates the line item data
func (li PricedLineItem) Validate() error {
	if strings.TrimSpace(li.Name) == "" {
		return &ValidationError{Field: "name", Message: "line item name is required"}
	}
	if err := ValidateAmount(li.BasePrice, "base_price"); err != nil {
		return err
	}
	if !li.Kind.IsValid() {
		return &ValidationError{Field: "kind", Message: fmt.Sprintf("invalid line item kind: %q", string(li.Kind))}
	}
	return nil
}
