package server

import (
	"strconv"
	"strings"

	billingreport "github.com/smallbiznis/billingpulse/internal/billingreport/domain"
	provider "github.com/smallbiznis/billingpulse/internal/provider/domain"
)

const maxPageLimit = 1000

type pageQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

func (q pageQuery) normalize(def int) (int, int) {
	limit := q.Limit
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return provider.NormalizePage(limit, q.Offset, def)
}

func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseDateRange reads dateFrom and dateTo. Both are required; an inverted
// range is accepted and yields an empty result downstream.
func parseDateRange(rawFrom, rawTo string) (provider.Date, provider.Date, error) {
	if strings.TrimSpace(rawFrom) == "" || strings.TrimSpace(rawTo) == "" {
		return provider.Date{}, provider.Date{}, billingreport.ErrInvalidPeriod
	}
	from, err := provider.ParseDate(rawFrom)
	if err != nil {
		return provider.Date{}, provider.Date{}, newValidationError("dateFrom", "invalid_date", "dateFrom must be YYYY-MM-DD")
	}
	to, err := provider.ParseDate(rawTo)
	if err != nil {
		return provider.Date{}, provider.Date{}, newValidationError("dateTo", "invalid_date", "dateTo must be YYYY-MM-DD")
	}
	return from, to, nil
}
