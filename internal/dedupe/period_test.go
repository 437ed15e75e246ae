package dedupe

import (
	"testing"
	"time"

	"github.com/ledgerline/ingest/internal/domain"
)

func TestExtractPeriod(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		content   string
		wantMonth time.Month
		wantYear  int
		wantOK    bool
	}{
		{
			name:      "spanish month in filename",
			filename:  "BBVA_Septiembre_2024.pdf",
			wantMonth: time.September,
			wantYear:  2024,
			wantOK:    true,
		},
		{
			name:      "english month in filename",
			filename:  "statement-march-2023.csv",
			wantMonth: time.March,
			wantYear:  2023,
			wantOK:    true,
		},
		{
			name:      "filename wins over content",
			filename:  "enero_2024.pdf",
			content:   "periodo: diciembre 2023",
			wantMonth: time.January,
			wantYear:  2024,
			wantOK:    true,
		},
		{
			name:      "falls back to content",
			filename:  "estado_de_cuenta.pdf",
			content:   "Periodo del 1 al 30 de Noviembre 2023",
			wantMonth: time.November,
			wantYear:  2023,
			wantOK:    true,
		},
		{
			name:      "year between underscores",
			filename:  "santander_mayo_2023_final.pdf",
			wantMonth: time.May,
			wantYear:  2023,
			wantOK:    true,
		},
		{
			name:      "year at end of filename stem",
			filename:  "HSBC_julio_2025.csv",
			wantMonth: time.July,
			wantYear:  2025,
			wantOK:    true,
		},
		{
			name:     "month without year does not resolve",
			filename: "octubre.pdf",
			wantOK:   false,
		},
		{
			name:     "digit-glued year does not resolve",
			filename: "cuenta_enero_12024.pdf",
			wantOK:   false,
		},
		{
			name:     "year outside 20xx does not resolve",
			filename: "octubre_1999.pdf",
			wantOK:   false,
		},
		{
			name:     "nothing resolves",
			filename: "scan0001.pdf",
			content:  "no period info here",
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			month, year, ok := ExtractPeriod(tt.filename, tt.content)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if month != tt.wantMonth || year != tt.wantYear {
				t.Errorf("got %v %d, want %v %d", month, year, tt.wantMonth, tt.wantYear)
			}
		})
	}
}

func TestPeriodProcessed(t *testing.T) {
	existing := []domain.Transaction{
		{Date: "2024-09-03", Bank: "BBVA"},
		{Date: "2024-08-28", Bank: "BBVA"},
		{Date: "not-a-date", Bank: "BBVA"},
	}

	if !PeriodProcessed(time.September, 2024, "bbva", existing) {
		t.Error("september 2024 BBVA should be processed")
	}
	if !PeriodProcessed(time.September, 2024, "BBVA", existing) {
		t.Error("bank comparison must be case-insensitive")
	}
	if PeriodProcessed(time.July, 2024, "bbva", existing) {
		t.Error("july 2024 should not be processed")
	}
	if PeriodProcessed(time.September, 2024, "santander", existing) {
		t.Error("other bank's period should not match")
	}
}

func TestKeyFromTransaction(t *testing.T) {
	key, ok := KeyFromTransaction(domain.Transaction{Date: "2024-09-03", Bank: "BBVA"})
	if !ok {
		t.Fatal("expected a key")
	}
	if key.String() != "2024-09-bbva" {
		t.Errorf("key = %q, want %q", key.String(), "2024-09-bbva")
	}

	if _, ok := KeyFromTransaction(domain.Transaction{Date: "03/09/2024"}); ok {
		t.Error("non-ISO date must not produce a key")
	}
}
