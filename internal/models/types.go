package models

import (
	"time"
)

// ServiceRecordFilters represents search and filter parameters for service history
type ServiceRecordFilters struct {
	CustomerRef *string    `json:"customer_ref,omitempty"`
	VehicleRef  *string    `json:"vehicle_ref,omitempty"`
	From        *time.Time `json:"from,omitempty"`
	To          *time.Time `json:"to,omitempty"`
	Limit       int        `json:"limit,omitempty"`
	Offset      int        `json:"offset,omitempty"`
}

// DefaultListLimit caps list queries that do not specify a limit
const DefaultListLimit = 100

// PaginationResult represents paginated results
type PaginationResult struct {
	Total       int64 `json:"total"`
	Limit       int   `json:"limit"`
	Offset      int   `json:"offset"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// NewPaginationResult computes the navigation flags for a page
func NewPaginationResult(total int64, limit, offset int) *PaginationResult {
	return &PaginationResult{
		Total:       total,
		Limit:       limit,
		Offset:      offset,
		HasNext:     int64(offset+limit) < total,
		HasPrevious: offset > 0,
	}
}

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	return ve.Message
}

// HealthCheck represents system health status
type HealthCheck struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
}
