package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseBalance(t *testing.T) {
	b, err := ParseBalance(" $10,000.50 ")
	if err != nil {
		t.Fatalf("ParseBalance: %v", err)
	}
	if !b.Set || b.String() != "10000.5" {
		t.Fatalf("balance = %+v (%s)", b, b.String())
	}

	empty, err := ParseBalance("")
	if err != nil || empty.Set || empty.String() != "" {
		t.Fatalf("empty balance = %+v, %v", empty, err)
	}

	for _, bad := range []string{"ten grand", "-5"} {
		if _, err := ParseBalance(bad); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ParseBalance(%q) error = %v, want ErrInvalidInput", bad, err)
		}
	}
}

func TestPriceLevel(t *testing.T) {
	lvl := ParsePriceLevel("$42,150.25")
	if !lvl.Value.Valid || lvl.String() != "42150.25" {
		t.Fatalf("numeric level = %+v", lvl)
	}
	text := ParsePriceLevel("42000 - 42100")
	if text.Value.Valid || text.String() != "42000 - 42100" {
		t.Fatalf("range level = %+v", text)
	}
	if !ParsePriceLevel(" ").IsZero() {
		t.Fatalf("blank level should be zero")
	}

	out, err := json.Marshal(TargetTrade{EntryPrice: lvl, StopLoss: text})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"entryPrice":42150.25,"stopLoss":"42000 - 42100","takeProfit":""}`
	if string(out) != want {
		t.Fatalf("json = %s, want %s", out, want)
	}
}
