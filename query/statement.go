// Package query parses declarative statements over a series and
// executes them as a streaming group-by aggregation.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Granularity is a group-by bucket width in milliseconds.
type Granularity int64

const (
	Minute Granularity = 60_000
	Hour   Granularity = 3_600_000
	Day    Granularity = 86_400_000
)

// Aggregator names one of the three supported fold kinds.
type Aggregator int

const (
	Mean Aggregator = iota
	Min
	Max
)

func (a Aggregator) String() string {
	switch a {
	case Mean:
		return "mean"
	case Min:
		return "min"
	case Max:
		return "max"
	default:
		return fmt.Sprintf("Aggregator(%d)", int(a))
	}
}

func parseAggregator(s string) (Aggregator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mean":
		return Mean, nil
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	default:
		return 0, fmt.Errorf("query: unknown aggregator %q", s)
	}
}

// Statement is a fully parsed query: scan from From, bucketed by
// GroupBy milliseconds, folded by each of Aggregators, limited to at
// most Limit rows.
type Statement struct {
	From        int64
	GroupBy     Granularity
	Aggregators []Aggregator
	Limit       int
}

// StatementExpr is the wire form of a Statement: four string fields
// taken straight from the host's query parameters.
type StatementExpr struct {
	From        string
	GroupBy     string
	Aggregators string
	Limit       string
}

// Parse turns a StatementExpr into a Statement, or a client-facing
// parse error.
func (e StatementExpr) Parse() (Statement, error) {
	from, err := parseFrom(e.From)
	if err != nil {
		return Statement{}, err
	}

	groupBy, err := parseGroupBy(e.GroupBy)
	if err != nil {
		return Statement{}, err
	}

	aggregators, err := parseAggregators(e.Aggregators)
	if err != nil {
		return Statement{}, err
	}

	limit, err := strconv.Atoi(strings.TrimSpace(e.Limit))
	if err != nil || limit < 0 {
		return Statement{}, fmt.Errorf("query: invalid limit %q", e.Limit)
	}

	return Statement{From: from, GroupBy: groupBy, Aggregators: aggregators, Limit: limit}, nil
}

// parseFrom accepts either a non-negative integer (milliseconds since
// the epoch) or an ISO date (YYYY-MM-DD), interpreted as UTC
// midnight.
func parseFrom(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("query: from must be non-negative, got %d", ms)
		}
		return ms, nil
	}

	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, fmt.Errorf("query: invalid from %q: %w", s, err)
	}
	return t.UnixMilli(), nil
}

func parseGroupBy(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minute":
		return Minute, nil
	case "hour":
		return Hour, nil
	case "day":
		return Day, nil
	default:
		return 0, fmt.Errorf("query: unknown group_by %q", s)
	}
}

func parseAggregators(s string) ([]Aggregator, error) {
	parts := strings.Split(s, ",")
	aggregators := make([]Aggregator, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		a, err := parseAggregator(p)
		if err != nil {
			return nil, err
		}
		aggregators = append(aggregators, a)
	}
	if len(aggregators) == 0 {
		return nil, fmt.Errorf("query: aggregators must not be empty")
	}
	return aggregators, nil
}
