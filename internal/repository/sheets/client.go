package sheets

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/wardstock/stocktake/internal/config"
)

// ErrSheetNotFound reports that the named tab does not exist in the
// spreadsheet.
var ErrSheetNotFound = errors.New("sheet not found")

// Grid dimensions for newly created tabs.
const (
	newSheetRows = 1000
	newSheetCols = 50
)

// Client abstracts the remote spreadsheet operations the table store relies
// on. Row numbers are 1-based sheet coordinates.
type Client interface {
	SheetExists(ctx context.Context, title string) (bool, error)
	AddSheet(ctx context.Context, title string) error
	ReadAll(ctx context.Context, title string) ([][]interface{}, error)
	AppendRow(ctx context.Context, title string, values []interface{}) error
	UpdateRow(ctx context.Context, title string, rowNum int, values []interface{}) error
	InsertRow(ctx context.Context, title string, rowNum int, values []interface{}) error
	DeleteRow(ctx context.Context, title string, rowNum int) error
}

// GoogleSheetsClient implements Client on top of the Google Sheets v4 API.
// A single instance is created at startup and shared for the process
// lifetime.
type GoogleSheetsClient struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger

	mu       sync.Mutex
	sheetIDs map[string]int64
}

var _ Client = (*GoogleSheetsClient)(nil)

// NewGoogleSheetsClient builds an authorized Sheets API client from the given
// configuration.
func NewGoogleSheetsClient(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetsClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &GoogleSheetsClient{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
		sheetIDs:      make(map[string]int64),
	}, nil
}

// SheetExists reports whether a tab with the given title exists.
func (c *GoogleSheetsClient) SheetExists(ctx context.Context, title string) (bool, error) {
	_, err := c.lookupSheetID(ctx, title)
	if errors.Is(err, ErrSheetNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddSheet creates a new tab with the given title.
func (c *GoogleSheetsClient) AddSheet(ctx context.Context, title string) error {
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{
					Title: title,
					GridProperties: &sheetsapi.GridProperties{
						RowCount:    newSheetRows,
						ColumnCount: newSheetCols,
					},
				},
			},
		}},
	}

	resp, err := c.service.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", title, err)
	}

	c.mu.Lock()
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			c.sheetIDs[reply.AddSheet.Properties.Title] = reply.AddSheet.Properties.SheetId
		}
	}
	c.mu.Unlock()

	c.logger.Info("sheet created", zap.String("sheet", title))
	return nil
}

// ReadAll returns every populated cell of the named tab, row by row.
// Returns ErrSheetNotFound when the tab does not exist.
func (c *GoogleSheetsClient) ReadAll(ctx context.Context, title string) ([][]interface{}, error) {
	if _, err := c.lookupSheetID(ctx, title); err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", title, err)
	}

	resp, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, quoteTitle(title)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", title, err)
	}

	return resp.Values, nil
}

// AppendRow appends one row after the last populated row of the tab.
func (c *GoogleSheetsClient) AppendRow(ctx context.Context, title string, values []interface{}) error {
	valueRange := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	_, err := c.service.Spreadsheets.Values.Append(c.spreadsheetID, quoteTitle(title), valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row to sheet %s: %w", title, err)
	}

	c.logger.Debug("row appended", zap.String("sheet", title), zap.Int("cells", len(values)))
	return nil
}

// UpdateRow overwrites the first len(values) cells of the given row.
func (c *GoogleSheetsClient) UpdateRow(ctx context.Context, title string, rowNum int, values []interface{}) error {
	valueRange := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	_, err := c.service.Spreadsheets.Values.Update(c.spreadsheetID, rowRange(title, rowNum, len(values)), valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update row %d of sheet %s: %w", rowNum, title, err)
	}

	c.logger.Debug("row updated", zap.String("sheet", title), zap.Int("row", rowNum))
	return nil
}

// InsertRow shifts rows down to open a new row at rowNum and fills it with
// the given values.
func (c *GoogleSheetsClient) InsertRow(ctx context.Context, title string, rowNum int, values []interface{}) error {
	sheetID, err := c.lookupSheetID(ctx, title)
	if err != nil {
		return fmt.Errorf("failed to insert row into sheet %s: %w", title, err)
	}

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			InsertDimension: &sheetsapi.InsertDimensionRequest{
				Range: &sheetsapi.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowNum - 1),
					EndIndex:   int64(rowNum),
				},
			},
		}},
	}
	if _, err := c.service.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to insert row into sheet %s: %w", title, err)
	}

	if len(values) == 0 {
		return nil
	}
	return c.UpdateRow(ctx, title, rowNum, values)
}

// DeleteRow removes the given row, shifting the rows below it up.
func (c *GoogleSheetsClient) DeleteRow(ctx context.Context, title string, rowNum int) error {
	sheetID, err := c.lookupSheetID(ctx, title)
	if err != nil {
		return fmt.Errorf("failed to delete row %d of sheet %s: %w", rowNum, title, err)
	}

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			DeleteDimension: &sheetsapi.DeleteDimensionRequest{
				Range: &sheetsapi.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowNum - 1),
					EndIndex:   int64(rowNum),
				},
			},
		}},
	}
	if _, err := c.service.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete row %d of sheet %s: %w", rowNum, title, err)
	}

	c.logger.Debug("row deleted", zap.String("sheet", title), zap.Int("row", rowNum))
	return nil
}

// lookupSheetID resolves a tab title to its numeric sheet id, refreshing the
// cached spreadsheet metadata on a miss.
func (c *GoogleSheetsClient) lookupSheetID(ctx context.Context, title string) (int64, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[title]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	if err := c.refreshSheetIDs(ctx); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok = c.sheetIDs[title]
	if !ok {
		return 0, ErrSheetNotFound
	}
	return id, nil
}

func (c *GoogleSheetsClient) refreshSheetIDs(ctx context.Context) error {
	resp, err := c.service.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to fetch spreadsheet metadata: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sheetIDs = make(map[string]int64, len(resp.Sheets))
	for _, sheet := range resp.Sheets {
		if sheet.Properties != nil {
			c.sheetIDs[sheet.Properties.Title] = sheet.Properties.SheetId
		}
	}
	return nil
}
