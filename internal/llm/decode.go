package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/nominas/internal/nomina"
)

var payslipSchema = BuildPayslipJSONSchema()

// DecodeVerified turns a raw model answer into a payslip result. The cleaned
// JSON is returned alongside for storage. Totals are always recomputed from
// the items.
func DecodeVerified(raw []byte, logger *slog.Logger) (nomina.Result, []byte, error) {
	cleaned, _, err := NormalizeAndSanitizeJSON(raw, logger)
	if err != nil {
		return nomina.Result{}, raw, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if err := ValidateJSONAgainstSchema(payslipSchema, cleaned); err != nil {
		return nomina.Result{}, cleaned, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	var out nomina.Result
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return nomina.Result{}, cleaned, fmt.Errorf("%w: unmarshal: %w", ErrInvalidResponse, err)
	}
	return out.Recompute(), cleaned, nil
}
