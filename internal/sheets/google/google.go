package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"transferdash/internal/core"
	"transferdash/internal/log"
	ports "transferdash/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultSummarySheet   = "Daily"
	DefaultTransfersSheet = "Transfers"
)

// appender is the slice of the Sheets API the client needs.
type appender interface {
	Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
}

type serviceAppender struct {
	svc *gsheet.Service
}

func (a serviceAppender) Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
	vr := &gsheet.ValueRange{Values: rows}
	_, err := a.svc.Spreadsheets.Values.Append(spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	return err
}

type Client struct {
	api            appender
	spreadsheetID  string
	summarySheet   string
	transfersSheet string
	logger         *log.Logger
}

var _ ports.Exporter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Daily"), GOOGLE_TRANSFERS_SHEET_NAME
// (default "Transfers"). Credentials come from an OAuth client plus the
// token minted by cmd/sheets-auth, or else from a service account.
func NewFromEnv(ctx context.Context, logger *log.Logger) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	logger = log.OrDiscard(logger).WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(serviceAppender{svc: svc}, spreadsheetID,
		os.Getenv("GOOGLE_SHEET_NAME"), os.Getenv("GOOGLE_TRANSFERS_SHEET_NAME"), logger), nil
}

func newClient(api appender, spreadsheetID, summarySheet, transfersSheet string, logger *log.Logger) *Client {
	summarySheet = strings.TrimSpace(summarySheet)
	if summarySheet == "" {
		summarySheet = DefaultSummarySheet
	}
	transfersSheet = strings.TrimSpace(transfersSheet)
	if transfersSheet == "" {
		transfersSheet = DefaultTransfersSheet
	}
	return &Client{
		api:            api,
		spreadsheetID:  spreadsheetID,
		summarySheet:   summarySheet,
		transfersSheet: transfersSheet,
		logger:         log.OrDiscard(logger),
	}
}

// newSheetsService initializes a Sheets Service. OAuth user credentials win
// over a service account when both are configured.
func newSheetsService(ctx context.Context, logger *log.Logger) (*gsheet.Service, error) {
	httpClient, err := oauthHTTPClient(ctx)
	switch {
	case err == nil:
		service, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		logger.InfoContext(ctx, "Google Sheets service created with OAuth token", log.FieldOperation, log.OpStartup)
		return service, nil
	case !errors.Is(err, ErrNoOAuthClient):
		return nil, err
	}

	credentialsJSON, err := loadCredentials(ctx, logger)
	if err != nil {
		return nil, err
	}
	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created", log.FieldOperation, log.OpStartup)
	return service, nil
}

func loadCredentials(ctx context.Context, logger *log.Logger) ([]byte, error) {
	logger = log.OrDiscard(logger)
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		logger.DebugContext(ctx, "Using inline JSON credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		logger.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		raw, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return raw, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) AppendDailySummary(ctx context.Context, day time.Time, s core.DashboardStats) error {
	rng := fmt.Sprintf("%s!A:G", c.summarySheet)
	if err := c.api.Append(ctx, c.spreadsheetID, rng, [][]any{ports.SummaryRow(day, s)}); err != nil {
		return fmt.Errorf("append summary to %s: %w", c.summarySheet, err)
	}
	c.logger.InfoContext(ctx, "Daily summary exported",
		log.FieldOperation, log.OpAppend,
		"day", day.Format("2006-01-02"),
		log.FieldCount, s.TotalTransactions)
	return nil
}

func (c *Client) AppendTransfers(ctx context.Context, ts []core.Transfer) error {
	if len(ts) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(ts))
	for _, t := range ts {
		rows = append(rows, ports.TransferRow(t))
	}
	rng := fmt.Sprintf("%s!A:H", c.transfersSheet)
	if err := c.api.Append(ctx, c.spreadsheetID, rng, rows); err != nil {
		return fmt.Errorf("append transfers to %s: %w", c.transfersSheet, err)
	}
	c.logger.InfoContext(ctx, "Transfers exported",
		log.FieldOperation, log.OpAppend,
		log.FieldCount, len(rows))
	return nil
}
