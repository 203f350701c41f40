package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"crd-scraper/models"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Writer handles writing reaction records to Google Sheets
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewWriter creates a new Google Sheets writer. spreadsheetID may be the
// bare ID or a full spreadsheet URL. Credentials come from the given file
// path, or from the GOOGLE_SHEETS_CREDENTIALS environment variable when the
// path is empty.
func NewWriter(spreadsheetID string, credentialsPath string) (*Writer, error) {
	if strings.HasPrefix(spreadsheetID, "http") {
		spreadsheetID = ExtractSpreadsheetID(spreadsheetID)
	}
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is empty")
	}

	ctx := context.Background()

	var credsJSON []byte
	var err error

	if credentialsPath != "" {
		credsJSON, err = os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
	} else {
		credsEnv := strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_CREDENTIALS"))
		if credsEnv == "" {
			return nil, fmt.Errorf("credentials not found: GOOGLE_SHEETS_CREDENTIALS environment variable is empty or not set")
		}
		zap.L().Debug("Reading credentials from GOOGLE_SHEETS_CREDENTIALS", zap.Int("bytes", len(credsEnv)))
		credsJSON = []byte(credsEnv)
	}

	var creds map[string]interface{}
	if err := json.Unmarshal(credsJSON, &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials JSON (check if JSON is properly formatted): %w", err)
	}
	if creds["type"] != "service_account" {
		return nil, fmt.Errorf("credentials must be a service account JSON file (type: service_account), got type: %v", creds["type"])
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		service:       service,
		spreadsheetID: spreadsheetID,
	}, nil
}

// CreateSheetAndWriteReactions creates a new sheet at the beginning of the
// spreadsheet and writes one row per reaction, preceded by a metadata row
// (DOI plus run summary) and a header row. Returns the created sheet name
// and sheet ID (gid).
func (w *Writer) CreateSheetAndWriteReactions(sheetName string, records []models.ReactionRecord, doi string, summaryInfo string) (string, int64, error) {
	sheetName = sanitizeSheetName(sheetName)
	if len(sheetName) > 100 {
		sheetName = sheetName[:100]
	}

	addSheetRequest := &sheets.AddSheetRequest{
		Properties: &sheets.SheetProperties{
			Title: sheetName,
			Index: 0,
		},
	}

	batchUpdateRequest := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: addSheetRequest,
			},
		},
	}

	batchUpdateResp, err := w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, batchUpdateRequest).Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to create sheet: %w", err)
	}

	var sheetID int64
	if len(batchUpdateResp.Replies) > 0 && batchUpdateResp.Replies[0].AddSheet != nil {
		sheetID = batchUpdateResp.Replies[0].AddSheet.Properties.SheetId
	}

	zap.L().Info("Created sheet", zap.String("name", sheetName), zap.Int64("sheet_id", sheetID))

	var values [][]interface{}

	if doi != "" || summaryInfo != "" {
		metadataRow := []interface{}{"DOI", doi}
		if summaryInfo != "" {
			metadataRow = append(metadataRow, "Summary", summaryInfo)
		}
		values = append(values, metadataRow)
	}

	header := []interface{}{"Reaction SMILES", "Reactants", "Reagents", "Products", "Method", "Source URL", "Scraped At"}
	values = append(values, header)

	for _, rec := range records {
		row := []interface{}{
			rec.ReactionSMILES,
			strings.Join(rec.Reactants, "."),
			strings.Join(rec.Reagents, "."),
			strings.Join(rec.Products, "."),
			rec.Method,
			rec.SourceURL,
			rec.ScrapedAt.Format(time.RFC3339),
		}
		values = append(values, row)
	}

	range_ := fmt.Sprintf("%s!A1", sheetName)
	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, range_, valueRange).
		ValueInputOption("RAW").
		Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to write to sheet: %w", err)
	}

	zap.L().Info("Wrote reactions to sheet", zap.Int("count", len(records)), zap.String("name", sheetName))
	return sheetName, sheetID, nil
}

// sanitizeSheetName removes invalid characters from sheet name
func sanitizeSheetName(name string) string {
	// Google Sheets sheet names cannot contain: / \ ? * [ ]
	invalidChars := []string{"/", "\\", "?", "*", "[", "]"}
	result := name
	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	if result == "" {
		result = "Sheet1"
	}
	return result
}

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func ExtractSpreadsheetID(url string) string {
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit?usp=sharing
	parts := strings.Split(url, "/d/")
	if len(parts) < 2 {
		return ""
	}

	idPart := parts[1]
	if idx := strings.Index(idPart, "/"); idx != -1 {
		idPart = idPart[:idx]
	}
	if idx := strings.Index(idPart, "?"); idx != -1 {
		idPart = idPart[:idx]
	}

	return strings.TrimSpace(idPart)
}
