package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultCacheDuration = 2 * time.Minute

// Credentials selects how the client authenticates. A service account wins
// over an OAuth client and token when both are present.
type Credentials struct {
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientJSON    string
	OAuthClientFile    string
	OAuthTokenJSON     string
	OAuthTokenFile     string
}

type Options struct {
	SpreadsheetID string
	SheetName     string // base name; the transaction year is prefixed
	Location      *time.Location
	Credentials   Credentials
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	loc           *time.Location

	// Row index cache for the most recently touched sheet.
	mu                 sync.Mutex
	cachedSheet        string
	cachedRowCount     int
	cachedRows         map[string]int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

var _ ports.TransactionExporter = (*Client)(nil)

func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(opts.SheetName)
	if base == "" {
		base = "Transactions"
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	svc, err := newSheetsService(ctx, opts.Credentials)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetBase:          base,
		loc:                loc,
		cacheValidDuration: defaultCacheDuration,
	}, nil
}

func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	saJSON, err := readInlineOrFile(creds.ServiceAccountJSON, creds.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account: %w", err)
	}
	if len(saJSON) > 0 {
		slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
			"credentials_size", len(saJSON))
		svc, err := gsheet.NewService(ctx,
			goption.WithCredentialsJSON(saJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return svc, nil
	}

	clientJSON, err := readInlineOrFile(creds.OAuthClientJSON, creds.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	if len(clientJSON) == 0 {
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}
	tokenJSON, err := readInlineOrFile(creds.OAuthTokenJSON, creds.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	if len(tokenJSON) == 0 {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}

	cfg, err := oauthgoogle.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with OAuth token")
	svc, err := gsheet.NewService(ctx, goption.WithTokenSource(cfg.TokenSource(ctx, &tok)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func readInlineOrFile(inline, path string) ([]byte, error) {
	if v := strings.TrimSpace(inline); v != "" {
		return []byte(v), nil
	}
	if p := strings.TrimSpace(path); p != "" {
		return os.ReadFile(p)
	}
	return nil, nil
}

// Upsert writes the transaction row, replacing an existing row with the same ID.
func (c *Client) Upsert(ctx context.Context, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		return "", errors.New("transaction without id")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(c.sheetBase, tx.CreatedAt.In(c.loc).Year())
	row, err := c.rowFor(ctx, sheet, tx.ID)
	if err != nil {
		return "", err
	}
	if row == 1 {
		if err := c.writeRow(ctx, sheet, 1, header); err != nil {
			return "", err
		}
		c.remember(sheet, "ID", 1)
		row = 2
	}

	if err := c.writeRow(ctx, sheet, row, transactionRow(tx, c.loc)); err != nil {
		return "", err
	}
	c.remember(sheet, tx.ID, row)
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastColumn, row), nil
}

func (c *Client) writeRow(ctx context.Context, sheet string, row int, values []any) error {
	rng := fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastColumn, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		c.InvalidateRowCache()
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// Delete clears the row holding the transaction, if any.
func (c *Client) Delete(ctx context.Context, id string, year int) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	sheet := yearPrefixedName(c.sheetBase, year)
	ids, err := c.readIDs(ctx, sheet)
	if err != nil {
		return err
	}
	idx := indexOf(ids, id)
	if idx < 0 {
		slog.WarnContext(ctx, "Transaction not found in sheet, nothing to delete", "id", id, "sheet", sheet)
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:%s%d", sheet, idx+1, lastColumn, idx+1)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	c.InvalidateRowCache()
	return nil
}

// rowFor returns the 1-based row holding id, or the next free row.
func (c *Client) rowFor(ctx context.Context, sheet, id string) (int, error) {
	c.mu.Lock()
	if c.cachedSheet == sheet && time.Now().Before(c.cacheExpiresAt) {
		row, ok := c.cachedRows[id]
		if !ok {
			row = c.cachedRowCount + 1
		}
		c.mu.Unlock()
		return row, nil
	}
	c.mu.Unlock()

	ids, err := c.readIDs(ctx, sheet)
	if err != nil {
		return 0, err
	}

	rows := make(map[string]int, len(ids))
	for i, v := range ids {
		if v = strings.TrimSpace(v); v != "" {
			rows[v] = i + 1
		}
	}

	c.mu.Lock()
	c.cachedSheet = sheet
	c.cachedRowCount = len(ids)
	c.cachedRows = rows
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()

	if row, ok := rows[id]; ok {
		return row, nil
	}
	return len(ids) + 1, nil
}

func (c *Client) remember(sheet, id string, row int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cachedSheet != sheet || c.cachedRows == nil {
		return
	}
	c.cachedRows[id] = row
	if row > c.cachedRowCount {
		c.cachedRowCount = row
	}
}

// InvalidateRowCache forces the next write to re-read the ID column.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheExpiresAt = time.Time{}
	c.cachedRows = nil
}

func (c *Client) readIDs(ctx context.Context, sheet string) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ids from %s: %w", sheet, err)
	}
	return firstColumn(resp.Values), nil
}
