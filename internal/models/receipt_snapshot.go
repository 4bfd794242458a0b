package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SnapshotSource records which workflow finalized the sale
type SnapshotSource string

const (
	SnapshotSourceCheckout    SnapshotSource = "checkout"
	SnapshotSourceAppointment SnapshotSource = "appointment"
)

// SnapshotLineItem is one charged line frozen into a snapshot
type SnapshotLineItem struct {
	ServiceRecordID string          `json:"service_record_id,omitempty"`
	Name            string          `json:"name"`
	Kind            LineItemKind    `json:"kind,omitempty"`
	Price           decimal.Decimal `json:"price"`
}

// ReceiptSnapshot is an immutable record of a finalized sale. TaxConfigAtTimeOfSale is the
// authoritative configuration for any later decomposition of Price.
type ReceiptSnapshot struct {
	ID                    string             `json:"id" db:"id"`
	Source                SnapshotSource     `json:"source" db:"source"`
	LineItemsSummary      string             `json:"line_items_summary" db:"line_items_summary"`
	LineItems             []SnapshotLineItem `json:"line_items" db:"line_items"`
	Price                 decimal.Decimal    `json:"price" db:"price"`
	PerformedDate         time.Time          `json:"performed_date" db:"performed_date"`
	VehicleRef            *string            `json:"vehicle_ref,omitempty" db:"vehicle_ref"`
	CustomerRef           *string            `json:"customer_ref,omitempty" db:"customer_ref"`
	BusinessInfo          BusinessInfo       `json:"business_info" db:"business_info"`
	TaxConfigAtTimeOfSale TaxConfiguration   `json:"tax_config_at_time_of_sale" db:"tax_config"`
	ServiceRecordIDs      []string           `json:"service_record_ids" db:"-"`
	CreatedAt             time.Time          `json:"created_at" db:"created_at"`
}

// NewReceiptSnapshot creates a snapshot of the given records, freezing config and business identity
func NewReceiptSnapshot(source SnapshotSource, records []*ServiceRecord, config TaxConfiguration, business BusinessInfo) *ReceiptSnapshot {
	snapshot := &ReceiptSnapshot{
		ID:                    uuid.New().String(),
		Source:                source,
		Price:                 decimal.Zero,
		BusinessInfo:          business,
		TaxConfigAtTimeOfSale: config,
		LineItems:             make([]SnapshotLineItem, 0, len(records)),
		ServiceRecordIDs:      make([]string, 0, len(records)),
		CreatedAt:             time.Now().UTC(),
	}

	names := make([]string, 0, len(records))
	for _, r := range records {
		snapshot.LineItems = append(snapshot.LineItems, SnapshotLineItem{
			ServiceRecordID: r.ID,
			Name:            r.ServiceName,
			Price:           r.Price,
		})
		snapshot.ServiceRecordIDs = append(snapshot.ServiceRecordIDs, r.ID)
		snapshot.Price = snapshot.Price.Add(r.Price)
		names = append(names, r.ServiceName)
	}
	snapshot.LineItemsSummary = strings.Join(names, ", ")

	if len(records) > 0 {
		first := records[0]
		snapshot.PerformedDate = first.PerformedDate
		snapshot.VehicleRef = first.VehicleRef
		snapshot.CustomerRef = first.CustomerRef
	}

	return snapshot
}

// Validate validates the snapshot before it is persisted
func (s *ReceiptSnapshot) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("snapshot ID is required")
	}
	if len(s.LineItems) == 0 {
		return fmt.Errorf("snapshot must contain at least one line item")
	}
	if s.Price.IsNegative() {
		return fmt.Errorf("snapshot price cannot be negative")
	}
	if err := s.TaxConfigAtTimeOfSale.Validate(); err != nil {
		return fmt.Errorf("invalid tax configuration: %w", err)
	}
	return nil
}

// MarshalBusinessInfo encodes the frozen business identity for storage
func (s *ReceiptSnapshot) MarshalBusinessInfo() (string, error) {
	data, err := json.Marshal(s.BusinessInfo)
	if err != nil {
		return "", fmt.Errorf("failed to marshal business info snapshot: %w", err)
	}
	return string(data), nil
}

// MarshalTaxConfig encodes the frozen tax configuration for storage
func (s *ReceiptSnapshot) MarshalTaxConfig() (string, error) {
	data, err := json.Marshal(s.TaxConfigAtTimeOfSale)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tax config snapshot: %w", err)
	}
	return string(data), nil
}

// MarshalLineItems encodes the frozen line items for storage
func (s *ReceiptSnapshot) MarshalLineItems() (string, error) {
	data, err := json.Marshal(s.LineItems)
	if err != nil {
		return "", fmt.Errorf("failed to marshal line items snapshot: %w", err)
	}
	return string(data), nil
}

// UnmarshalStored restores the JSON-encoded columns of a stored snapshot
func (s *ReceiptSnapshot) UnmarshalStored(businessInfo, taxConfig, lineItems string) error {
	if err := json.Unmarshal([]byte(businessInfo), &s.BusinessInfo); err != nil {
		return fmt.Errorf("failed to unmarshal business info snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(taxConfig), &s.TaxConfigAtTimeOfSale); err != nil {
		return fmt.Errorf("failed to unmarshal tax config snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(lineItems), &s.LineItems); err != nil {
		return fmt.Errorf("failed to unmarshal line items snapshot: %w", err)
	}
	return nil
}
