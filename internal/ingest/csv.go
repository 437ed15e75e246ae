package ingest

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ledgerline/ingest/internal/domain"
)

const csvDelimiter = ","

// parseCSV splits delimited statement text into raw records. The first line
// is a header and is skipped. Rows with fewer than three columns or a
// non-numeric amount are dropped silently: bad rows are a data-quality fact,
// not a parse failure. An input with zero valid rows yields an empty slice.
func parseCSV(text string, log zerolog.Logger) []domain.RawRecord {
	lines := strings.Split(text, "\n")
	records := make([]domain.RawRecord, 0, len(lines))

	for i, line := range lines {
		if i == 0 {
			continue // header
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, csvDelimiter)
		if len(fields) < 3 {
			log.Debug().Int("line", i+1).Msg("csv row has fewer than three columns, skipping")
			continue
		}
		for j, f := range fields {
			fields[j] = unquote(strings.TrimSpace(f))
		}

		amount, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			log.Debug().Int("line", i+1).Str("value", fields[2]).Msg("csv amount not numeric, skipping row")
			continue
		}

		records = append(records, domain.RawRecord{
			Date:        fields[0],
			Description: fields[1],
			Amount:      amount,
		})
	}

	return records
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
