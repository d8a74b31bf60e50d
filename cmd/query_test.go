package cmd

import (
	"reflect"
	"strings"
	"testing"
)

func TestQuery(t *testing.T) {
	input := `{"command":"ledger","currency":"EUR","fraction":2}
{"command":"account","name":"Checking","initial":100}

{"command":"tx","date":"2025-01-03","amount":-20,"account":"Checking","description":"Bakery"}
{"command":"tx","date":"2025-01-04","amount":-50,"account":"Checking","subs":[{"amount":-20,"description":"wine"},{"amount":-5,"description":"bread"}]}
`
	testCases := []struct {
		name    string
		path    string
		command string
		want    []any
	}{
		{name: "amounts", path: "$.amount", command: "tx", want: []any{-20.0, -50.0}},
		{name: "every line", path: "$.command", want: []any{"ledger", "account", "tx", "tx"}},
		{name: "unresolved paths are skipped", path: "$.description", want: []any{"Bakery"}},
		{name: "wildcards are flattened", path: "$.subs[*].description", command: "tx", want: []any{"wine", "bread"}},
		{name: "other command", path: "$.name", command: "account", want: []any{"Checking"}},
		{name: "no match", path: "$.amount", command: "recurring", want: nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := query(strings.NewReader(input), tc.path, tc.command)
			if err != nil {
				t.Fatalf("query() = %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("query(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}

	if _, err := query(strings.NewReader("{\"command\":"), "$.command", ""); err == nil {
		t.Error("query() on malformed JSON must fail")
	}
}
