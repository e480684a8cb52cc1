package query

import (
	"reflect"
	"testing"
	"time"
)

func TestStatementExprParseMillisFrom(t *testing.T) {
	e := StatementExpr{From: "1000", GroupBy: "hour", Aggregators: "mean", Limit: "10"}
	got, err := e.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Statement{From: 1000, GroupBy: Hour, Aggregators: []Aggregator{Mean}, Limit: 10}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestStatementExprParseDateFrom(t *testing.T) {
	e := StatementExpr{From: "1961-01-02", GroupBy: "day", Aggregators: "min,max", Limit: "5"}
	got, err := e.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	wantFrom := time.Date(1961, 1, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	if got.From != wantFrom {
		t.Fatalf("From = %d, want %d", got.From, wantFrom)
	}
	if got.GroupBy != Day {
		t.Fatalf("GroupBy = %v, want Day", got.GroupBy)
	}
	if len(got.Aggregators) != 2 || got.Aggregators[0] != Min || got.Aggregators[1] != Max {
		t.Fatalf("Aggregators = %+v, want [Min Max]", got.Aggregators)
	}
}

func TestStatementExprParseErrors(t *testing.T) {
	cases := []StatementExpr{
		{From: "not-a-date", GroupBy: "hour", Aggregators: "mean", Limit: "1"},
		{From: "0", GroupBy: "fortnight", Aggregators: "mean", Limit: "1"},
		{From: "0", GroupBy: "hour", Aggregators: "median", Limit: "1"},
		{From: "0", GroupBy: "hour", Aggregators: "mean", Limit: "-1"},
		{From: "0", GroupBy: "hour", Aggregators: "", Limit: "1"},
		{From: "-5", GroupBy: "hour", Aggregators: "mean", Limit: "1"},
	}
	for i, c := range cases {
		if _, err := c.Parse(); err == nil {
			t.Fatalf("case %d: %+v expected an error", i, c)
		}
	}
}
