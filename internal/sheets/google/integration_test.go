//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"minitracker/internal/core"
	"minitracker/internal/sheets"
)

// Integration tests require a real spreadsheet shared with a service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_WriteDashboard(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	credsJSON := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")
	credsFile := os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")
	if credsJSON == "" && credsFile == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := New(ctx, Config{
		SpreadsheetID:   spreadsheetID,
		SheetName:       "Integration Dashboard",
		CredentialsJSON: credsJSON,
		CredentialsFile: credsFile,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	result, err := core.Aggregate(
		[]core.MonetaryRecord{{Date: "2024-01-10", Amount: decimal.NewFromInt(1000)}},
		[]core.MonetaryRecord{{Date: "2024-01-11", Amount: decimal.NewFromInt(250), Category: "rent"}},
	)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	snap := sheets.Snapshot{OwnerID: 1, GeneratedAt: time.Now(), Result: result}
	if err := client.WriteDashboard(ctx, snap); err != nil {
		t.Fatalf("WriteDashboard: %v", err)
	}

	resp, err := client.svc.Spreadsheets.Values.Get(spreadsheetID, columnsRange(client.sheetName)).Context(ctx).Do()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(resp.Values) != len(buildRows(snap)) {
		t.Errorf("read back %d rows, want %d", len(resp.Values), len(buildRows(snap)))
	}
}
