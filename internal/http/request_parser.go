// This file implements parsing and validation of query strings and JSON
// bodies shared by the transfer, filter and report handlers.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"transferdash/internal/core"
)

const (
	maxBodyBytes  = 64 << 10
	dateLayout    = "2006-01-02"
	rangeClear    = "clear"
	queryAccount  = "account"
	queryMin      = "minAmount"
	queryMax      = "maxAmount"
	queryFrom     = "from"
	queryTo       = "to"
	queryRange    = "range"
	queryTitle    = "title"
	queryTypeName = "type"
)

var (
	errBadRequest    = errors.New("bad request")
	errInvalidFilter = errors.New("invalid filter")
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// ParseFilterQuery builds a report filter from query parameters. A range
// preset wins over explicit from/to bounds.
func ParseFilterQuery(q url.Values, now time.Time) (core.ReportFilter, error) {
	var f core.ReportFilter

	for _, id := range q[queryAccount] {
		if id = sanitizeInput(id); id != "" {
			f.Accounts = append(f.Accounts, id)
		}
	}

	for key, dst := range map[string]**decimal.Decimal{queryMin: &f.MinAmount, queryMax: &f.MaxAmount} {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			continue
		}
		d, err := core.ParseAmountBound(v)
		if err != nil {
			return core.ReportFilter{}, badRequest("invalid %s %q", key, v)
		}
		*dst = &d
	}

	if name := strings.TrimSpace(q.Get(queryRange)); name != "" {
		dr := presetRange(name, now)
		f.DateRange = &dr
	} else {
		from, to := strings.TrimSpace(q.Get(queryFrom)), strings.TrimSpace(q.Get(queryTo))
		if from != "" || to != "" {
			dr := core.DateRange{End: endOfDay(now)}
			if from != "" {
				start, err := parseBound(from, now.Location(), false)
				if err != nil {
					return core.ReportFilter{}, badRequest("invalid %s %q", queryFrom, from)
				}
				dr.Start = start
			}
			if to != "" {
				end, err := parseBound(to, now.Location(), true)
				if err != nil {
					return core.ReportFilter{}, badRequest("invalid %s %q", queryTo, to)
				}
				dr.End = end
			}
			f.DateRange = &dr
		}
	}

	if tt := strings.TrimSpace(q.Get(queryTypeName)); tt != "" {
		f.TransactionType = core.TransactionType(tt)
	}

	if err := f.Validate(); err != nil {
		return core.ReportFilter{}, fmt.Errorf("%w: %v", errInvalidFilter, err)
	}
	return f, nil
}

// parseBound accepts RFC 3339 timestamps or plain dates. A plain date used
// as an upper bound covers the whole day.
func parseBound(s string, loc *time.Location, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		return endOfDay(t), nil
	}
	return t, nil
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// presetRange maps the filter form choices, "clear" meaning back to today.
func presetRange(name string, now time.Time) core.DateRange {
	if name == rangeClear {
		name = core.RangeToday
	}
	return core.PresetRange(name, now)
}

// filterBody is the PUT /api/filters payload: a full report filter, or a
// range preset alone.
type filterBody struct {
	Range string `json:"range,omitempty"`
	core.ReportFilter
}

// ParseFilterBody decodes and validates a filter update.
func ParseFilterBody(r io.Reader, now time.Time) (core.ReportFilter, error) {
	var body filterBody
	if err := decodeJSON(r, &body); err != nil {
		return core.ReportFilter{}, err
	}
	f := body.ReportFilter
	if name := strings.TrimSpace(body.Range); name != "" {
		dr := presetRange(name, now)
		f.DateRange = &dr
	}
	if err := f.Validate(); err != nil {
		return core.ReportFilter{}, fmt.Errorf("%w: %v", errInvalidFilter, err)
	}
	return f, nil
}

// transferRequest is the POST /api/transfers payload. Amount may be sent as
// a JSON number or as a string, with a dot or a comma separator.
type transferRequest struct {
	FromAccountID string          `json:"fromAccountId"`
	ToAccountID   string          `json:"toAccountId"`
	Amount        json.RawMessage `json:"amount"`
	Description   string          `json:"description"`
}

type parsedTransfer struct {
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	Description   string
}

// ParseTransferRequest decodes a transfer submission. Unknown or missing
// accounts are left for the caller to resolve.
func ParseTransferRequest(r io.Reader) (parsedTransfer, error) {
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		return parsedTransfer{}, err
	}
	raw := strings.Trim(string(bytes.TrimSpace(req.Amount)), `"`)
	amount, err := core.ParseAmount(raw)
	if err != nil {
		return parsedTransfer{}, fmt.Errorf("amount %q: %w", raw, err)
	}
	return parsedTransfer{
		FromAccountID: sanitizeInput(req.FromAccountID),
		ToAccountID:   sanitizeInput(req.ToAccountID),
		Amount:        amount,
		Description:   sanitizeInput(req.Description),
	}, nil
}

type autoRefreshBody struct {
	Enabled *bool `json:"enabled"`
}

// ParseAutoRefreshBody requires an explicit enabled flag.
func ParseAutoRefreshBody(r io.Reader) (bool, error) {
	var body autoRefreshBody
	if err := decodeJSON(r, &body); err != nil {
		return false, err
	}
	if body.Enabled == nil {
		return false, badRequest("missing field %q", "enabled")
	}
	return *body.Enabled, nil
}

func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("malformed JSON body: %v", err)
	}
	return nil
}

// sanitizeInput removes control characters except tab and newlines and trims
// whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
