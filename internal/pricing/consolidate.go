package pricing

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"autoservice-billing-api/internal/models"
)

// ReceiptGroup is one printable receipt: the selected records sharing a (vehicle, date) key
type ReceiptGroup struct {
	VehicleRef    string                  `json:"vehicle_ref"`
	PerformedDate string                  `json:"performed_date"`
	Items         []*models.ServiceRecord `json:"items"`
	GroupTotal    decimal.Decimal         `json:"group_total"`
}

type groupKey struct {
	vehicle string
	date    string
}

// Consolidate partitions the selected records by (vehicle, performed date).
//
// Groups appear in the order their key is first seen in records, and items keep their
// relative order. Every selected record lands in exactly one group. Repeated ids are
// counted once. An id that does not match any record is rejected. GroupTotal is the
// plain sum of the already tax-inclusive prices; nothing is re-taxed here.
func Consolidate(records []*models.ServiceRecord, selectedIDs []string) ([]ReceiptGroup, error) {
	selected := lo.Uniq(selectedIDs)
	if len(selected) == 0 {
		return []ReceiptGroup{}, nil
	}

	byID := make(map[string]*models.ServiceRecord, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		if _, seen := byID[r.ID]; !seen {
			byID[r.ID] = r
		}
	}

	wanted := make(map[string]bool, len(selected))
	for _, id := range selected {
		if _, ok := byID[id]; !ok {
			return nil, invalidInput("selected_ids", "unknown service record %q", id)
		}
		wanted[id] = true
	}

	groups := make([]ReceiptGroup, 0)
	index := make(map[groupKey]int)
	for _, r := range records {
		if r == nil || !wanted[r.ID] {
			continue
		}
		// A record listed twice in the input is still placed once.
		delete(wanted, r.ID)

		key := groupKey{vehicle: r.VehicleKey(), date: r.DateKey()}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, ReceiptGroup{
				VehicleRef:    key.vehicle,
				PerformedDate: key.date,
				Items:         []*models.ServiceRecord{},
				GroupTotal:    decimal.Zero,
			})
		}
		groups[i].Items = append(groups[i].Items, r)
		groups[i].GroupTotal = groups[i].GroupTotal.Add(r.Price)
	}

	return groups, nil
}

// ItemIDs returns the ids of the records in the group
func (g ReceiptGroup) ItemIDs() []string {
	return lo.Map(g.Items, func(r *models.ServiceRecord, _ int) string { return r.ID })
}

// TaxSource tells which configuration a receipt breakdown was computed with
type TaxSource string

const (
	// TaxSourceSnapshot means every record was decomposed with the configuration frozen at sale time
	TaxSourceSnapshot TaxSource = "snapshot"
	// TaxSourceCurrent means no snapshot applied and the current settings were used
	TaxSourceCurrent TaxSource = "current"
	// TaxSourceMixed means some records had snapshots and the rest fell back to current settings
	TaxSourceMixed TaxSource = "mixed"
)

// GroupBreakdown is the display breakdown of one receipt group
type GroupBreakdown struct {
	Breakdown
	Total  decimal.Decimal `json:"total"`
	Source TaxSource       `json:"tax_source"`
}

// DecomposeGroup splits a group's total into base price and taxes.
//
// snapshotConfigs maps a record id to the configuration frozen with the sale that produced it.
// Records without an entry are decomposed with current. Records are bucketed by configuration
// and each bucket total is decomposed on its own, so a group whose records all share one
// configuration is decomposed exactly once against GroupTotal.
func DecomposeGroup(group ReceiptGroup, snapshotConfigs map[string]models.TaxConfiguration, current models.TaxConfiguration) (GroupBreakdown, error) {
	type bucket struct {
		config models.TaxConfiguration
		total  decimal.Decimal
	}

	var buckets []*bucket
	fromSnapshot, fromCurrent := 0, 0

	for _, item := range group.Items {
		config, ok := snapshotConfigs[item.ID]
		if ok {
			fromSnapshot++
		} else {
			config = current
			fromCurrent++
		}

		b, found := lo.Find(buckets, func(b *bucket) bool { return b.config.Equal(config) })
		if !found {
			b = &bucket{config: config, total: decimal.Zero}
			buckets = append(buckets, b)
		}
		b.total = b.total.Add(item.Price)
	}

	result := GroupBreakdown{
		Breakdown: ZeroBreakdown(),
		Total:     group.GroupTotal,
		Source:    TaxSourceCurrent,
	}
	switch {
	case fromSnapshot > 0 && fromCurrent == 0:
		result.Source = TaxSourceSnapshot
	case fromSnapshot > 0 && fromCurrent > 0:
		result.Source = TaxSourceMixed
	}

	if len(buckets) == 0 {
		// Empty group: decompose the zero total under current settings.
		bd, err := DecomposeReverse(group.GroupTotal, current)
		if err != nil {
			return GroupBreakdown{}, err
		}
		result.Breakdown = bd
		return result, nil
	}

	if len(buckets) == 1 {
		bd, err := DecomposeReverse(group.GroupTotal, buckets[0].config)
		if err != nil {
			return GroupBreakdown{}, err
		}
		result.Breakdown = bd
		return result, nil
	}

	for _, b := range buckets {
		bd, err := DecomposeReverse(b.total, b.config)
		if err != nil {
			return GroupBreakdown{}, err
		}
		result.Breakdown = result.Breakdown.Add(bd)
	}
	return result, nil
}
