package codec

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jacentio/weave/weaveerr"
)

type widget struct {
	Foo   string `weave:"foo" validate:"required"`
	Bar   int    `weave:"bar" validate:"gte=0"`
	Extra string `weave:"-"`
}

func TestNewPropsOf(t *testing.T) {
	c := New[widget]()
	got := c.PropsOf()
	want := []string{"foo", "bar"}
	if len(got) != len(want) {
		t.Fatalf("PropsOf() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("PropsOf()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDecodeValid(t *testing.T) {
	c := New[widget]()
	v, err := c.Decode(RawObject{"foo": "hi", "bar": 42})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if v.Foo != "hi" || v.Bar != 42 {
		t.Fatalf("Decode() = %+v", v)
	}
}

func TestDecodeMissingRequired(t *testing.T) {
	c := New[widget]()
	_, err := c.Decode(RawObject{"bar": 1})
	if err == nil {
		t.Fatal("Decode() expected error for missing required field")
	}
	var verr *weaveerr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Decode() error type = %T, want *weaveerr.ValidationError", err)
	}
}

func TestDecodeIgnoresExtraKeys(t *testing.T) {
	c := New[widget]()
	v, err := c.Decode(RawObject{"foo": "hi", "bar": 1, "unknown": "ignored"})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if v.Foo != "hi" {
		t.Fatalf("Decode() = %+v", v)
	}
}

func TestEncodeIsExact(t *testing.T) {
	c := New[widget]()
	raw := c.Encode(widget{Foo: "hi", Bar: 1, Extra: "hidden"})
	if _, ok := raw["extra"]; ok {
		t.Fatalf("Encode() leaked tag=\"-\" field: %v", raw)
	}
	if len(raw) != 2 {
		t.Fatalf("Encode() = %v, want exactly 2 declared keys", raw)
	}
}

func TestRoundTrip(t *testing.T) {
	c := New[widget]()
	orig := widget{Foo: "hi", Bar: 7}
	encoded := c.Encode(orig)
	decoded, err := c.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode(Encode(x)) error = %v", err)
	}
	if decoded.Foo != orig.Foo || decoded.Bar != orig.Bar {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, orig)
	}
}

func TestEncodePropUnknownKeyPassesThrough(t *testing.T) {
	c := New[widget]()
	got := c.EncodeProp("nope", 99)
	if got != 99 {
		t.Fatalf("EncodeProp() = %v, want passthrough 99", got)
	}
}

func TestIs(t *testing.T) {
	c := New[widget]()
	if !c.Is(widget{Foo: "hi", Bar: 1}) {
		t.Fatal("Is() = false for a valid value")
	}
	if c.Is(widget{Foo: "hi", Bar: -1}) {
		t.Fatal("Is() = true for a value with negative Bar")
	}
	if c.Is("not a widget") {
		t.Fatal("Is() = true for a mismatched type")
	}
}

// maxBar is a hand-rolled CodecLike[widget] that layers one extra
// decode-time bound (Bar <= 10) on top of whatever base already declares,
// exercising Pipe without needing a second reflected struct type.
type maxBar struct{ limit int }

func (maxBar) Decode(raw RawObject) (widget, error) { return widget{}, nil }
func (m maxBar) Validate(v widget) error {
	if v.Bar > m.limit {
		return weaveerr.NewValidationError("widget", fmt.Sprintf("bar exceeds piped bound %d", m.limit))
	}
	return nil
}
func (maxBar) Encode(v widget) RawObject     { return RawObject{"foo": v.Foo, "bar": v.Bar} }
func (m maxBar) Is(v any) bool               { w, ok := v.(widget); return ok && m.Validate(w) == nil }
func (maxBar) PropsOf() []string             { return []string{"foo", "bar"} }
func (maxBar) EncodeProp(k string, v any) any { return v }

func TestPipeChainsValidation(t *testing.T) {
	base := New[widget]()
	chain := Pipe[widget](base, maxBar{limit: 10})

	if _, err := chain.Decode(RawObject{"foo": "hi", "bar": 5}); err != nil {
		t.Fatalf("Decode() error = %v, want both codecs to accept bar=5", err)
	}
	if _, err := chain.Decode(RawObject{"foo": "hi", "bar": 42}); err == nil {
		t.Fatal("Decode() expected error: bar=42 passes widget but fails the piped bound bar<=10")
	}
}

func TestPipeEncodeAndPropsOfDelegateToFirst(t *testing.T) {
	base := New[widget]()
	chain := Pipe[widget](base, maxBar{limit: 10})

	if got, want := chain.PropsOf(), base.PropsOf(); len(got) != len(want) {
		t.Fatalf("PropsOf() = %v, want a's %v", got, want)
	}
	encoded := chain.Encode(widget{Foo: "hi", Bar: 1})
	if len(encoded) != 2 {
		t.Fatalf("Encode() = %v, want the base codec's exact 2 keys", encoded)
	}
}
