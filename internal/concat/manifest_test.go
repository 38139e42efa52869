package concat

import (
	"database/sql"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{90 * time.Second, "00:01:30"},
		{3661 * time.Second, "01:01:01"},
	}
	for _, c := range cases {
		if got := formatDuration(c.d); got != c.want {
			t.Errorf("formatDuration(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}

func TestNullableInt64(t *testing.T) {
	if got := nullableInt64(sql.NullInt64{}); got != nil {
		t.Fatalf("expected nil for an invalid NullInt64, got %v", *got)
	}
	valid := sql.NullInt64{Int64: 42, Valid: true}
	got := nullableInt64(valid)
	if got == nil || *got != 42 {
		t.Fatalf("got %v, want pointer to 42", got)
	}
}
