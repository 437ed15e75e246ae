package classify

import (
	"fmt"
	"strings"

	"github.com/ledgerline/ingest/internal/domain"
)

// buildBatchPrompt constructs the classification prompt for one batch. The
// category vocabulary is closed and the output contract is strict JSON so the
// reply can be matched item-for-item against the batch.
func buildBatchPrompt(batch []domain.RawRecord) string {
	var b strings.Builder

	b.WriteString("You are a transaction classifier for personal bank statements.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Classify EVERY transaction below, in the order given.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a JSON array with EXACTLY one object per input transaction.\n\n")

	b.WriteString("Each object must have these fields:\n")
	b.WriteString("- \"category\": string (one of the allowed categories below)\n")
	b.WriteString("- \"merchant\": string (short merchant name extracted from the description)\n")
	b.WriteString("- \"subcategory\": string (free text, may be empty)\n")
	b.WriteString("- \"confidence\": number between 0 and 1\n")
	b.WriteString("- \"tags\": array of strings (may be empty)\n\n")

	b.WriteString("Use ONLY these categories:\n")
	for _, cat := range Categories {
		b.WriteString("  - " + cat + "\n")
	}
	b.WriteString("\n")

	b.WriteString("Classification rules:\n")
	b.WriteString("1. Prefer the merchant name over generic wording: \"OXXO CDMX 4411\" is Groceries, merchant \"OXXO\".\n")
	b.WriteString("2. A positive amount over 1000 with payroll wording (nomina, salary, sueldo) is Income.\n")
	b.WriteString("3. Monthly recurring charges (Netflix, Spotify, gym memberships) belong in Shopping with tag \"subscription\".\n")
	b.WriteString("4. Ride-hailing and fuel purchases are Transport.\n")
	b.WriteString("5. When nothing fits, use \"General\" with confidence below 0.5.\n\n")

	b.WriteString("Transactions:\n")
	for i, r := range batch {
		b.WriteString(fmt.Sprintf("%d. date=%s amount=%.2f description=%q\n", i+1, r.Date, r.Amount, r.Description))
	}

	b.WriteString("\nReturn ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"[\" and end with \"]\".\n")

	return b.String()
}
