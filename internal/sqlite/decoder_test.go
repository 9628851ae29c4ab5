package sqlite

import (
	"testing"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		kind     types.Kind
		want     any
		null     bool
		mismatch bool
	}{
		{name: "null text", raw: nil, kind: types.KindText, null: true},
		{name: "null integer", raw: nil, kind: types.KindInteger, null: true},
		{name: "text", raw: "a", kind: types.KindText, want: "a"},
		{name: "bytes as text", raw: []byte("b"), kind: types.KindText, want: "b"},
		{name: "integer as text", raw: int64(12), kind: types.KindText, want: "12"},
		{name: "real as text", raw: 1.5, kind: types.KindText, want: "1.5"},
		{name: "integer", raw: int64(3), kind: types.KindInteger, want: int64(3)},
		{name: "integral real as integer", raw: 4.0, kind: types.KindInteger, want: int64(4)},
		{name: "fractional real as integer", raw: 4.5, kind: types.KindInteger, mismatch: true},
		{name: "numeric text as integer", raw: "17", kind: types.KindInteger, want: int64(17)},
		{name: "word as integer", raw: "abc", kind: types.KindInteger, mismatch: true},
		{name: "blob as integer", raw: []byte{0xff}, kind: types.KindInteger, mismatch: true},
		{name: "integer as real", raw: int64(2), kind: types.KindReal, want: 2.0},
		{name: "text as real", raw: "2.5", kind: types.KindReal, want: 2.5},
		{name: "word as real", raw: "x", kind: types.KindReal, mismatch: true},
		{name: "numeric keeps integer", raw: int64(5), kind: types.KindNumeric, want: int64(5)},
		{name: "numeric keeps real", raw: 5.5, kind: types.KindNumeric, want: 5.5},
		{name: "numeric from text", raw: "6", kind: types.KindNumeric, want: int64(6)},
		{name: "text as blob", raw: "hi", kind: types.KindBlob},
		{name: "integer as blob", raw: int64(1), kind: types.KindBlob, mismatch: true},
		{name: "bool from integer", raw: int64(1), kind: types.KindBool, want: true},
		{name: "bool from zero", raw: int64(0), kind: types.KindBool, want: false},
		{name: "bool from blob", raw: []byte{1}, kind: types.KindBool, mismatch: true},
		{name: "any keeps value", raw: int64(9), kind: types.KindAny, want: int64(9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Decode(tt.raw, tt.kind)
			if v.Kind() != tt.kind {
				t.Errorf("kind = %s, want %s", v.Kind(), tt.kind)
			}
			if v.IsNull() != tt.null {
				t.Errorf("IsNull = %v, want %v", v.IsNull(), tt.null)
			}
			if v.Mismatch() != tt.mismatch {
				t.Errorf("Mismatch = %v, want %v", v.Mismatch(), tt.mismatch)
			}
			if tt.null || tt.mismatch {
				if v.Any() != nil || v.Int() != 0 || v.Text() != "" {
					t.Errorf("expected zero value, got %#v", v.Any())
				}
				return
			}
			if tt.want != nil && v.Any() != tt.want {
				t.Errorf("got %#v, want %#v", v.Any(), tt.want)
			}
		})
	}
}

func TestDecodeBlobCopies(t *testing.T) {
	raw := []byte{1, 2, 3}
	v := Decode(raw, types.KindBlob)
	raw[0] = 9
	if v.Blob()[0] != 1 {
		t.Error("decoded blob shares memory with the driver buffer")
	}
	if string(Decode("hi", types.KindBlob).Blob()) != "hi" {
		t.Error("text should decode to its bytes")
	}
}

func TestDecodeRow(t *testing.T) {
	row := DecodeRow([]any{"a", int64(1), nil}, []types.Kind{types.KindText, types.KindInteger})
	if len(row) != 3 {
		t.Fatalf("expected 3 values, got %d", len(row))
	}
	if row[0].Text() != "a" || row[1].Int() != 1 {
		t.Errorf("unexpected row %v", row)
	}
	if row[2].Kind() != types.KindAny || !row[2].IsNull() {
		t.Errorf("extra column should decode as null any, got %+v", row[2])
	}
}
