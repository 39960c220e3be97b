package idhash

import (
	"testing"
	"time"

	"github.com/mr-tron/base58"
)

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func TestComputeRunID(t *testing.T) {
	tests := []struct {
		name       string
		from, to   string
		capital    float64
		configHash string
	}{
		{"single day", "2024-01-02", "2024-01-02", 10_000_000, "abc"},
		{"month", "2024-01-01", "2024-01-31", 10_000_000, "abc"},
		{"other capital", "2024-01-01", "2024-01-31", 5_000_000, "abc"},
		{"other config", "2024-01-01", "2024-01-31", 10_000_000, "def"},
	}

	seen := make(map[string]string)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRunID(day(tt.from), day(tt.to), tt.capital, tt.configHash)

			raw, err := base58.Decode(got)
			if err != nil {
				t.Fatalf("run id is not base58: %v", err)
			}
			if len(raw) != 16 {
				t.Errorf("decoded length = %d, want 16", len(raw))
			}

			// Verify determinism: same inputs should produce same output
			again := ComputeRunID(day(tt.from), day(tt.to), tt.capital, tt.configHash)
			if got != again {
				t.Errorf("ComputeRunID() not deterministic: %s != %s", got, again)
			}

			if prev, dup := seen[got]; dup {
				t.Errorf("collision with %s", prev)
			}
			seen[got] = tt.name
		})
	}
}

func TestComputeConfigHash(t *testing.T) {
	a := ComputeConfigHash([]byte(`{"checkpoint_minute":5}`))
	b := ComputeConfigHash([]byte(`{"checkpoint_minute":6}`))

	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	if a == b {
		t.Errorf("different configs must hash differently")
	}
	if a != ComputeConfigHash([]byte(`{"checkpoint_minute":5}`)) {
		t.Errorf("ComputeConfigHash() not deterministic")
	}
}

func TestComputeResultID(t *testing.T) {
	a := ComputeResultID("run", day("2024-01-02"), "005930")
	b := ComputeResultID("run", day("2024-01-03"), "005930")

	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	if a == b {
		t.Errorf("different dates must hash differently")
	}
}
