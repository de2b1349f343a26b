package handler

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// money renders an amount with the two decimals the ledger stores, as a JSON number
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(valueobject.MoneyScale))
}

// quantity keeps the precision a line was issued with
func quantity(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// parseUUID parses an id from a path or query value, naming the field on failure
func parseUUID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s must be a valid UUID", field)
	}
	return id, nil
}

// parseInstant accepts RFC3339 or a plain date, taken as midnight UTC
func parseInstant(field, raw string) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, fmt.Errorf("%s is required", field)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), false, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("%s must be RFC3339 or YYYY-MM-DD", field)
}

// parseWindow reads the [inicio, fin) window of the cash cut. A plain date
// as fin covers that whole day.
func parseWindow(inicio, fin string) (time.Time, time.Time, error) {
	start, _, err := parseInstant("inicio", inicio)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, dateOnly, err := parseInstant("fin", fin)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if dateOnly {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

// optionalTime dereferences t, falling back to def
func optionalTime(t *time.Time, def time.Time) time.Time {
	if t == nil || t.IsZero() {
		return def
	}
	return *t
}

func optionalDecimal(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
