package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format for service dates
const DateLayout = "2006-01-02"

// NoneKey stands in for a missing vehicle or date when grouping records
const NoneKey = "none"

// ServiceRecord is a persisted historical charge. Price is tax-inclusive, as charged.
// Records are never updated after creation.
type ServiceRecord struct {
	ID                 string          `json:"id" db:"id" validate:"required,max=64"`
	VehicleRef         *string         `json:"vehicle_ref,omitempty" db:"vehicle_ref"`
	CustomerRef        *string         `json:"customer_ref,omitempty" db:"customer_ref"`
	ServiceName        string          `json:"service_name" db:"service_name" validate:"required,min=1,max=255"`
	ServiceDescription *string         `json:"service_description,omitempty" db:"service_description"`
	Price              decimal.Decimal `json:"price" db:"price"`
	PerformedDate      time.Time       `json:"performed_date" db:"performed_date"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
}

// NewServiceRecord creates a service record with a generated ID and timestamp
func NewServiceRecord(serviceName string, price decimal.Decimal, performedDate time.Time) *ServiceRecord {
	return &ServiceRecord{
		ID:            uuid.New().String(),
		ServiceName:   serviceName,
		Price:         price,
		PerformedDate: TruncateToDate(performedDate),
		CreatedAt:     time.Now().UTC(),
	}
}

// Validate validates the service record data and normalizes blank optional fields to nil
func (r *ServiceRecord) Validate() error {
	if err := ValidateRequired(r.ID, "id"); err != nil {
		return err
	}

	if err := ValidateRequired(r.ServiceName, "service_name"); err != nil {
		return err
	}

	if err := ValidateStringLength(r.ServiceName, "service_name", 1, 255); err != nil {
		return err
	}

	if err := ValidateAmount(r.Price, "price"); err != nil {
		return err
	}

	r.VehicleRef = normalizeOptional(r.VehicleRef)
	r.CustomerRef = normalizeOptional(r.CustomerRef)
	r.ServiceDescription = normalizeOptional(r.ServiceDescription)

	if err := validateOptionalRef(r.VehicleRef, "vehicle_ref"); err != nil {
		return err
	}
	if err := validateOptionalRef(r.CustomerRef, "customer_ref"); err != nil {
		return err
	}
	if r.ServiceDescription != nil {
		return ValidateStringLength(*r.ServiceDescription, "service_description", 0, 1000)
	}

	return nil
}

// SetVehicleRef sets the vehicle reference
func (r *ServiceRecord) SetVehicleRef(ref string) {
	r.VehicleRef = optionalString(ref)
}

// SetCustomerRef sets the customer reference
func (r *ServiceRecord) SetCustomerRef(ref string) {
	r.CustomerRef = optionalString(ref)
}

// SetDescription sets the service description
func (r *ServiceRecord) SetDescription(description string) {
	r.ServiceDescription = optionalString(description)
}

// VehicleKey returns the vehicle reference used for grouping
func (r *ServiceRecord) VehicleKey() string {
	if r.VehicleRef == nil || *r.VehicleRef == "" {
		return NoneKey
	}
	return *r.VehicleRef
}

// DateKey returns the performed date used for grouping
func (r *ServiceRecord) DateKey() string {
	return FormatDate(r.PerformedDate)
}

// FormatDate renders a service date, or NoneKey for the zero time
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return NoneKey
	}
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD service date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// TruncateToDate drops the time-of-day component, keeping the calendar date
func TruncateToDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
