package record

import (
	"testing"
)

func TestDecode_PreservesFieldOrder(t *testing.T) {
	r, err := DecodeRecord([]byte(`{"zeta": 1, "alpha": "a", "mid": null, "nested": {"b": 2, "a": 1}}`))
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}

	want := []string{"zeta", "alpha", "mid", "nested"}
	got := r.Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	nested, _ := r.Get("nested")
	if keys := nested.Record().Keys(); keys[0] != "b" || keys[1] != "a" {
		t.Errorf("nested keys = %v, want [b a]", keys)
	}
}

func TestDecode_NumberLiteralsPreserved(t *testing.T) {
	r := MustDecodeRecord(`{"speed": 10000, "ratio": 1.50, "big": 12345678901234567890}`)

	tests := map[string]string{
		"speed": "10000",
		"ratio": "1.50",
		"big":   "12345678901234567890",
	}
	for field, want := range tests {
		v, _ := r.Get(field)
		if got := v.Text(); got != want {
			t.Errorf("%s = %q, want %q", field, got, want)
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"truncated", `{"a": 1`},
		{"trailing data", `{"a": 1} {"b": 2}`},
		{"empty", ``},
		{"bare word", `nope`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.input)); err == nil {
				t.Errorf("Decode(%q) expected error", tt.input)
			}
		})
	}

	if _, err := DecodeRecord([]byte(`[1, 2]`)); err == nil {
		t.Error("DecodeRecord(list) expected error")
	}
}

func TestRecord_MarshalRoundTrip(t *testing.T) {
	input := `{"id":7,"name":"rack-12","tags":[{"name":"a"},{"name":"b"}],"site":null,"active":true,"note":"quote \" here"}`

	r := MustDecodeRecord(input)
	out, err := r.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(out) != input {
		t.Errorf("MarshalJSON() = %s, want %s", out, input)
	}
}

func TestRecord_Lookup(t *testing.T) {
	r := MustDecodeRecord(`{"device_type": {"model": "X1", "manufacturer": {"name": "Acme"}}, "rack": null}`)

	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{"device_type.model", "X1", true},
		{"device_type.manufacturer.name", "Acme", true},
		{"device_type.missing", "", false},
		{"rack.name", "", false},
		{"rack", "", true},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			v, ok := r.Lookup(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
			if got := v.Text(); got != tt.want {
				t.Errorf("Lookup(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestRecord_ID(t *testing.T) {
	if id, ok := MustDecodeRecord(`{"id": 42}`).ID(); !ok || id != "42" {
		t.Errorf("ID() = %q, %v; want 42, true", id, ok)
	}
	if _, ok := MustDecodeRecord(`{"id": null}`).ID(); ok {
		t.Error("ID() on null id should report false")
	}
	if _, ok := MustDecodeRecord(`{"name": "x"}`).ID(); ok {
		t.Error("ID() on missing id should report false")
	}
}

func TestRecord_SetKeepsPosition(t *testing.T) {
	r := New().Set("a", Int(1)).Set("b", Int(2)).Set("a", Int(3))

	keys := r.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Keys() = %v, want [a b]", keys)
	}
	v, _ := r.Get("a")
	if v.Text() != "3" {
		t.Errorf("a = %s, want 3", v.Text())
	}
}

func TestValue_Equal(t *testing.T) {
	a := MustDecodeRecord(`{"x": [1, {"y": "z"}]}`)
	b := MustDecodeRecord(`{"x": [1, {"y": "z"}]}`)
	c := MustDecodeRecord(`{"x": [1, {"y": "w"}]}`)

	if !a.Equal(b) {
		t.Error("identical records should be equal")
	}
	if a.Equal(c) {
		t.Error("different records should not be equal")
	}
}
