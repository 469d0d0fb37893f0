package gateway

import (
	"reflect"
	"testing"
)

type chainID int

func (c chainID) String() string { return "chain-" + formatValue(int(c)) }

func TestParamsEncode(t *testing.T) {
	got := Params{
		"chains":  []string{"1", "137"},
		"ids":     []int{1, 56},
		"limit":   10,
		"ratio":   0.5,
		"flag":    true,
		"custom":  chainID(7),
		"skipped": nil,
		"raw":     "x",
	}.Encode()

	want := map[string]string{
		"chains": "1,137",
		"ids":    "1,56",
		"limit":  "10",
		"ratio":  "0.5",
		"flag":   "true",
		"custom": "chain-7",
		"raw":    "x",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Encode = %v, want %v", got, want)
	}
	if Params(nil).Encode() != nil {
		t.Fatalf("expected nil for empty params")
	}
}
