// Package export publishes the show catalog to a Google Sheets spreadsheet
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/radiograb/internal/config"
	"github.com/radiograb/internal/models"
	"github.com/radiograb/pkg/logger"
)

// Columns defines the column headers of the catalog sheet
var Columns = []string{
	"ID",
	"Station",
	"Name",
	"Schedule",
	"Cron",
	"Duration (min)",
	"Active",
	"Retention (days)",
	"TTL Type",
	"Content Type",
	"Stream Only",
	"Syndicated",
	"Auto Imported",
	"Host",
	"Genre",
	"Image URL",
	"Updated At",
}

// SheetsExporter replaces the contents of one sheet with the catalog
type SheetsExporter struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	log           *logger.Logger
}

// NewSheetsExporter authenticates with a service account and creates an exporter
func NewSheetsExporter(ctx context.Context, cfg config.ExportConfig, log *logger.Logger) (*SheetsExporter, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("export.spreadsheet_id is required")
	}

	raw := []byte(cfg.ServiceAccountJSON)
	if len(raw) == 0 {
		if cfg.CredentialsFile == "" {
			return nil, fmt.Errorf("no Google credentials provided: set credentials_file or service_account_json")
		}
		var err error
		if raw, err = os.ReadFile(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
	}

	creds, err := google.CredentialsFromJSON(ctx, raw, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Google credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return NewWithService(srv, cfg.SpreadsheetID, cfg.SheetName, log), nil
}

// NewWithService creates an exporter around an existing service
func NewWithService(srv *sheets.Service, spreadsheetID, sheetName string, log *logger.Logger) *SheetsExporter {
	if sheetName == "" {
		sheetName = "Shows"
	}
	return &SheetsExporter{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           log.WithComponent("sheets-export"),
	}
}

// Export writes a header row plus one row per show, replacing what was there
func (e *SheetsExporter) Export(ctx context.Context, shows []*models.Show) error {
	if err := e.ensureSheetExists(ctx); err != nil {
		return err
	}

	_, err := e.service.Spreadsheets.Values.Clear(e.spreadsheetID, e.sheetName, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to clear sheet: %w", err)
	}

	writeRange := fmt.Sprintf("%s!A1", e.sheetName)
	valueRange := &sheets.ValueRange{Values: Rows(shows)}
	_, err = e.service.Spreadsheets.Values.Update(e.spreadsheetID, writeRange, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}

	e.log.Info().
		Int("shows", len(shows)).
		Str("sheet", e.sheetName).
		Msg("Catalog exported")
	return nil
}

// ensureSheetExists creates the sheet if it doesn't exist
func (e *SheetsExporter) ensureSheetExists(ctx context.Context) error {
	spreadsheet, err := e.service.Spreadsheets.Get(e.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == e.sheetName {
			return nil
		}
	}

	e.log.Info().Str("sheet", e.sheetName).Msg("Creating new sheet")
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: e.sheetName,
					},
				},
			},
		},
	}
	if _, err := e.service.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	return nil
}

// Rows renders the header and one row per show
func Rows(shows []*models.Show) [][]interface{} {
	header := make([]interface{}, len(Columns))
	for i, col := range Columns {
		header[i] = col
	}

	rows := make([][]interface{}, 0, len(shows)+1)
	rows = append(rows, header)
	for _, s := range shows {
		station := ""
		if s.Station != nil {
			station = s.Station.Name
		}
		retention := fmt.Sprint(s.RetentionDays)
		if s.RetainsForever() {
			retention = "forever"
		}
		rows = append(rows, []interface{}{
			s.ID,
			station,
			s.Name,
			s.ScheduleDescription,
			s.ScheduleCron,
			s.DurationMinutes,
			yesNo(s.Active),
			retention,
			string(s.DefaultTTLType),
			string(s.ContentType),
			yesNo(s.StreamOnly),
			yesNo(s.IsSyndicated),
			yesNo(s.AutoImported),
			models.StringValue(s.Host),
			models.StringValue(s.Genre),
			models.StringValue(s.ImageURL),
			formatTime(s.UpdatedAt),
		})
	}
	return rows
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
