package counting

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wardstock/stocktake/internal/domain/models"
	"github.com/wardstock/stocktake/internal/store"
)

// View assembles the counting page payload: the zone list, filtered rows with
// per-row edit flags, and progress over the unfiltered table.
func (s *Service) View(ctx context.Context, operator, device string, filter models.ViewFilter) (*models.CountView, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return nil, ErrOperatorRequired
	}

	dev := s.deviceOrDefault(device)
	table := s.ResolveTableName(dev)

	snapshot, err := s.store.ReadAll(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("view table %s: %w", table, err)
	}

	rows := make([]models.CountRow, 0, len(snapshot.Rows))
	for _, row := range snapshot.Rows {
		rows = append(rows, models.CountRow{
			DrugName:  row.Get(ColDrugName),
			Location:  row.Get(ColLocation),
			Zone:      Zone(row.Get(ColLocation)),
			Quantity:  row.Get(ColQuantity),
			Note:      row.Get(ColNote),
			CountedBy: row.Get(ColCountedBy),
			UpdatedAt: row.Get(ColUpdatedAt),
			Editable:  canEdit(row.Get(ColCountedBy), operator),
		})
	}

	rows = filterRows(rows, filter)
	if filter.SortByLocation {
		sortRows(rows)
	}

	return &models.CountView{
		Device:   dev,
		Table:    table,
		Operator: operator,
		Zones:    collectZones(snapshot),
		Rows:     rows,
		Progress: progressOf(snapshot),
	}, nil
}

// collectZones lists the distinct zones of rows that carry a location,
// sorted; a table with no located rows reports just Unclassified.
func collectZones(snapshot store.Table) []string {
	seen := make(map[string]bool)
	for _, row := range snapshot.Rows {
		if !row.Has(ColLocation) {
			continue
		}
		seen[Zone(row.Get(ColLocation))] = true
	}
	if len(seen) == 0 {
		return []string{ZoneUnclassified}
	}

	zones := make([]string, 0, len(seen))
	for zone := range seen {
		zones = append(zones, zone)
	}
	sort.Strings(zones)
	return zones
}

// filterRows applies the page filters in order: zone, keyword, hide
// completed.
func filterRows(rows []models.CountRow, filter models.ViewFilter) []models.CountRow {
	keyword := strings.ToLower(strings.TrimSpace(filter.Keyword))

	filtered := make([]models.CountRow, 0, len(rows))
	for _, row := range rows {
		if filter.Zone != "" && row.Zone != filter.Zone {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(row.DrugName), keyword) {
			continue
		}
		if filter.HideCompleted && strings.TrimSpace(row.Quantity) != "" {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered
}

// sortRows orders by location then drug name, empty values last, keeping the
// incoming order for ties.
func sortRows(rows []models.CountRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if c := compareEmptyLast(rows[i].Location, rows[j].Location); c != 0 {
			return c < 0
		}
		return compareEmptyLast(rows[i].DrugName, rows[j].DrugName) < 0
	})
}

func compareEmptyLast(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	case a < b:
		return -1
	default:
		return 1
	}
}

// progressOf computes the counted-rows metric over the whole table. A row
// counts as done once its quantity holds any non-blank text.
func progressOf(snapshot store.Table) models.Progress {
	total := len(snapshot.Rows)
	done := 0
	for _, row := range snapshot.Rows {
		if strings.TrimSpace(row.Get(ColQuantity)) != "" {
			done++
		}
	}

	percent := 0.0
	if total > 0 {
		percent = math.Round(float64(done)/float64(total)*1000) / 10
	}
	return models.Progress{Total: total, Done: done, Percent: percent}
}
