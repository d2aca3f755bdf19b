package pid

import (
	"testing"
	"time"
)

// FuzzValidate checks that arbitrary scanner or keyboard input never panics
// and that anything accepted parses back to itself.
func FuzzValidate(f *testing.F) {
	f.Add("")
	f.Add(validPID)
	f.Add("KTH-2508-00073-6")
	f.Add("ABC-2508-00073-2")
	f.Add("KTH250800736")
	f.Add("KTH-2513-00073-0")
	f.Add("KTH-2508-00073-2\x00")
	f.Add(string([]byte{0xff, 0xfe, 0x2d}))

	c, err := New(Config{SiteCode: "KTH"}, nil)
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, input string) {
		v := c.Validate(input)
		if v.Valid != (v.Kind == KindNone) {
			t.Fatalf("inconsistent validation %+v for %q", v, input)
		}

		comps, err := c.Parse(input)
		if v.Valid {
			if err != nil {
				t.Fatalf("valid %q failed to parse: %v", input, err)
			}
			if comps.String() != input {
				t.Fatalf("round trip changed %q to %q", input, comps.String())
			}
			if s := c.ValidateStrict(input); !s.Valid && s.Kind != ImplausiblePeriod {
				t.Fatalf("strict rejected valid %q as %s", input, s.Kind)
			}
		} else if err == nil {
			t.Fatalf("invalid %q parsed without error", input)
		}
	})
}

// FuzzGenerate checks that every sequence in range yields a valid PID.
func FuzzGenerate(f *testing.F) {
	f.Add(0, int64(0))
	f.Add(73, int64(1755163800))
	f.Add(MaxSequence, int64(4102444800))

	f.Fuzz(func(t *testing.T, seq int, unix int64) {
		if seq < 0 || seq > MaxSequence {
			return
		}
		at := time.Unix(int64(uint64(unix)%(1<<37)), 0).UTC()
		c, err := New(Config{SiteCode: "KTH"}, fixedSequence(seq))
		if err != nil {
			t.Fatal(err)
		}
		pid, comps, err := c.GenerateAt(t.Context(), at)
		if err != nil {
			t.Fatalf("generate seq=%d at %s: %v", seq, at, err)
		}
		if !c.ValidateStrict(pid).Valid {
			t.Fatalf("generated %q failed strict validation", pid)
		}
		if parsed, _ := c.Parse(pid); parsed != comps {
			t.Fatalf("parse(%q) = %+v, want %+v", pid, parsed, comps)
		}
	})
}
