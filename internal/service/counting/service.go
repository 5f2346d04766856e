package counting

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wardstock/stocktake/internal/domain/models"
	"github.com/wardstock/stocktake/internal/store"
)

// Column names of the counting tables.
const (
	ColDrugName  = "drug_name"
	ColLocation  = "location"
	ColQuantity  = "quantity"
	ColNote      = "note"
	ColCountedBy = "counted_by"
	ColUpdatedAt = "updated_at"
)

// ZoneUnclassified labels rows whose location does not start with a letter.
const ZoneUnclassified = "Unclassified"

// auditFieldNewItem marks audit entries written for newly added lines.
const auditFieldNewItem = "new item"

// Table naming. A device id that already ends in a recognized suffix names
// its table verbatim; bare ids get the default suffix.
const (
	tablePrefix        = "Count-"
	defaultTableSuffix = "-cart"
)

var tableSuffixes = []string{"-cart", "-area", "-store"}

const timeLayout = "2006-01-02 15:04:05"

// Sentinel errors surfaced to the HTTP layer.
var (
	ErrOperatorRequired = errors.New("operator name is required")
	ErrMissingFields    = errors.New("drug name and location are required")
	ErrRowLocked        = errors.New("row is owned by another operator")
)

// countKey is the upsert identity of an inventory line.
var countKey = []string{ColDrugName, ColLocation}

// CountingService is the behavior the HTTP layer and the scheduler consume.
type CountingService interface {
	View(ctx context.Context, operator, device string, filter models.ViewFilter) (*models.CountView, error)
	SaveCount(ctx context.Context, operator string, req models.SaveCountRequest) error
	AddItem(ctx context.Context, operator string, req models.AddItemRequest) error
	Progress(ctx context.Context, device string) (models.DeviceProgress, error)
	Export(ctx context.Context, device string) ([]byte, string, error)
}

// Service implements the counting workflow over a TableStore.
type Service struct {
	store         store.TableStore
	defaultDevice string
	logger        *zap.Logger
	now           func() time.Time
}

var _ CountingService = (*Service)(nil)

// NewService builds the counting service. defaultDevice backs requests that
// do not name a device.
func NewService(ts store.TableStore, defaultDevice string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:         ts,
		defaultDevice: defaultDevice,
		logger:        logger,
		now:           time.Now,
	}
}

// ResolveTableName maps a device id to its counting table name.
func (s *Service) ResolveTableName(device string) string {
	dev := s.deviceOrDefault(device)
	for _, suffix := range tableSuffixes {
		if strings.HasSuffix(dev, suffix) {
			return tablePrefix + dev
		}
	}
	return tablePrefix + dev + defaultTableSuffix
}

func (s *Service) deviceOrDefault(device string) string {
	if dev := strings.TrimSpace(device); dev != "" {
		return dev
	}
	return s.defaultDevice
}

// Zone derives the zone label from a storage location: the leading ASCII
// letter upper-cased, or Unclassified.
func Zone(location string) string {
	loc := strings.TrimSpace(location)
	if loc == "" {
		return ZoneUnclassified
	}
	switch c := loc[0]; {
	case c >= 'A' && c <= 'Z':
		return string(c)
	case c >= 'a' && c <= 'z':
		return string(c - 'a' + 'A')
	default:
		return ZoneUnclassified
	}
}

// SaveCount records a quantity for one inventory line, re-checking ownership
// against the stored row before writing. The count write and the audit write
// are separate appends; a failed audit does not roll the count back.
func (s *Service) SaveCount(ctx context.Context, operator string, req models.SaveCountRequest) error {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return ErrOperatorRequired
	}

	device := s.deviceOrDefault(req.Device)
	table := s.ResolveTableName(device)

	snapshot, err := s.store.ReadAll(ctx, table)
	if err != nil {
		return fmt.Errorf("save count: %w", err)
	}

	var current store.Row
	for _, row := range snapshot.Rows {
		if row.Get(ColDrugName) == req.DrugName && row.Get(ColLocation) == req.Location {
			current = row
			break
		}
	}

	if !canEdit(current.Get(ColCountedBy), operator) {
		return ErrRowLocked
	}

	quantity := strconv.Itoa(parseQuantity(req.Quantity))
	oldQuantity := current.Get(ColQuantity)
	ts := s.now().Format(timeLayout)

	rec := store.NewRecord()
	rec.Set(ColDrugName, req.DrugName)
	rec.Set(ColLocation, req.Location)
	rec.Set(ColQuantity, quantity)
	rec.Set(ColNote, req.Note)
	rec.Set(ColCountedBy, operator)
	rec.Set(ColUpdatedAt, ts)

	if err := s.store.Upsert(ctx, table, countKey, rec); err != nil {
		return fmt.Errorf("save count: %w", err)
	}

	if oldQuantity != quantity {
		entry := models.AuditEntry{
			TS:       ts,
			Device:   device,
			Zone:     Zone(req.Location),
			DrugCode: req.DrugName,
			Field:    ColQuantity,
			OldValue: oldQuantity,
			NewValue: quantity,
			User:     operator,
		}
		if err := s.store.AppendAudit(ctx, entry); err != nil {
			return fmt.Errorf("save count: %w", err)
		}
	}

	s.store.Invalidate(table)
	s.logger.Info("count saved",
		zap.String("table", table),
		zap.String("drug", req.DrugName),
		zap.String("operator", operator),
	)
	return nil
}

// AddItem appends a new inventory line. Drug name and location are required;
// the rejection happens before any remote write.
func (s *Service) AddItem(ctx context.Context, operator string, req models.AddItemRequest) error {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return ErrOperatorRequired
	}

	name := strings.TrimSpace(req.DrugName)
	location := strings.TrimSpace(req.Location)
	if name == "" || location == "" {
		return ErrMissingFields
	}

	device := s.deviceOrDefault(req.Device)
	table := s.ResolveTableName(device)
	quantity := parseQuantity(req.Quantity)
	ts := s.now().Format(timeLayout)

	rec := store.NewRecord()
	rec.Set(ColDrugName, name)
	rec.Set(ColLocation, location)
	rec.Set(ColQuantity, strconv.Itoa(quantity))
	rec.Set(ColNote, strings.TrimSpace(req.Note))
	rec.Set(ColCountedBy, operator)
	rec.Set(ColUpdatedAt, ts)

	if err := s.store.Append(ctx, table, rec); err != nil {
		return fmt.Errorf("add item: %w", err)
	}

	entry := models.AuditEntry{
		TS:       ts,
		Device:   device,
		Zone:     Zone(location),
		DrugCode: name,
		Field:    auditFieldNewItem,
		NewValue: fmt.Sprintf("%s=%d", ColQuantity, quantity),
		User:     operator,
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		return fmt.Errorf("add item: %w", err)
	}

	s.store.Invalidate(table)
	s.logger.Info("item added",
		zap.String("table", table),
		zap.String("drug", name),
		zap.String("operator", operator),
	)
	return nil
}

// Progress reports counting progress for one device's table.
func (s *Service) Progress(ctx context.Context, device string) (models.DeviceProgress, error) {
	dev := s.deviceOrDefault(device)
	table := s.ResolveTableName(dev)

	snapshot, err := s.store.ReadAll(ctx, table)
	if err != nil {
		return models.DeviceProgress{}, fmt.Errorf("progress of table %s: %w", table, err)
	}

	return models.DeviceProgress{
		Device:   dev,
		Table:    table,
		Progress: progressOf(snapshot),
	}, nil
}

// canEdit applies the ownership gate: a row is editable when nobody counted
// it yet or the same operator did. Comparison is exact after trimming.
func canEdit(owner, operator string) bool {
	owner = strings.TrimSpace(owner)
	return owner == "" || owner == strings.TrimSpace(operator)
}

// parseQuantity coerces free-form quantity text. Anything that does not read
// as a non-negative integer counts as zero.
func parseQuantity(text string) int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
