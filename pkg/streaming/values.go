package streaming

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// UpdateKind is the lifecycle step an entity update describes.
type UpdateKind string

const (
	UpdateEnter    UpdateKind = "enter"
	UpdateUpdate   UpdateKind = "update"
	UpdatePreserve UpdateKind = "preserve"
	UpdateDelete   UpdateKind = "delete"
)

// Property is one (table, field) identified value of an entity update.
type Property struct {
	Table string `json:"table"`
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Is reports whether the property carries the given identifier.
func (p Property) Is(table, name string) bool {
	return p.Table == table && p.Name == name
}

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	KindNone ValueKind = iota
	KindInt
	KindFloat
	KindBool
	KindVector
	KindVectorXY
	KindString
	KindArray
)

// Value is a typed property value. Accessors never fail: a value of an
// unexpected kind yields the zero value of the requested type.
type Value struct {
	Kind   ValueKind
	Int    int64
	Float  float32
	Vector r3.Vector
	Str    string
	Array  []Value
}

func IntValue(v int64) Value      { return Value{Kind: KindInt, Int: v} }
func FloatValue(v float32) Value  { return Value{Kind: KindFloat, Float: v} }
func StringValue(v string) Value  { return Value{Kind: KindString, Str: v} }
func ArrayValue(v ...Value) Value { return Value{Kind: KindArray, Array: v} }

func BoolValue(v bool) Value {
	if v {
		return Value{Kind: KindBool, Int: 1}
	}
	return Value{Kind: KindBool}
}

func VectorValue(x, y, z float64) Value {
	return Value{Kind: KindVector, Vector: r3.Vector{X: x, Y: y, Z: z}}
}

func VectorXYValue(x, y float64) Value {
	return Value{Kind: KindVectorXY, Vector: r3.Vector{X: x, Y: y}}
}

// AsInt returns integer and boolean values as is and truncates floats.
func (v Value) AsInt() int64 {
	switch v.Kind {
	case KindInt, KindBool:
		return v.Int
	case KindFloat:
		if math.IsNaN(float64(v.Float)) {
			return 0
		}
		return int64(v.Float)
	}
	return 0
}

// AsFloat returns float values as is and widens integers.
func (v Value) AsFloat() float32 {
	switch v.Kind {
	case KindFloat:
		return v.Float
	case KindInt:
		return float32(v.Int)
	}
	return 0
}

// AsBool treats any non-zero integer as true.
func (v Value) AsBool() bool {
	return v.AsInt() != 0
}

// AsVector returns the vector, with a zero Z for planar vectors.
func (v Value) AsVector() r3.Vector {
	if v.Kind == KindVector || v.Kind == KindVectorXY {
		return v.Vector
	}
	return r3.Vector{}
}

func (v Value) AsString() string {
	if v.Kind == KindString {
		return v.Str
	}
	return ""
}

func (v Value) AsArray() []Value {
	if v.Kind == KindArray {
		return v.Array
	}
	return nil
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindBool:
		return fmt.Sprintf("%t", v.Int != 0)
	case KindVector:
		return fmt.Sprintf("[%g %g %g]", v.Vector.X, v.Vector.Y, v.Vector.Z)
	case KindVectorXY:
		return fmt.Sprintf("[%g %g]", v.Vector.X, v.Vector.Y)
	case KindString:
		return v.Str
	case KindArray:
		return fmt.Sprintf("%v", v.Array)
	}
	return "<none>"
}

// valueJSON is the wire form of a Value: an object with exactly one key.
type valueJSON struct {
	Int      *int64    `json:"int,omitempty"`
	Float    *float32  `json:"float,omitempty"`
	Bool     *bool     `json:"bool,omitempty"`
	Vector   []float64 `json:"vector,omitempty"`
	VectorXY []float64 `json:"vectorxy,omitempty"`
	String   *string   `json:"string,omitempty"`
	Array    []Value   `json:"array,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	var w valueJSON
	switch v.Kind {
	case KindInt:
		w.Int = &v.Int
	case KindFloat:
		w.Float = &v.Float
	case KindBool:
		b := v.Int != 0
		w.Bool = &b
	case KindVector:
		w.Vector = []float64{v.Vector.X, v.Vector.Y, v.Vector.Z}
	case KindVectorXY:
		w.VectorXY = []float64{v.Vector.X, v.Vector.Y}
	case KindString:
		w.String = &v.Str
	case KindArray:
		w.Array = v.Array
		if w.Array == nil {
			w.Array = []Value{}
		}
		// omitempty would drop an empty array
		return json.Marshal(struct {
			Array []Value `json:"array"`
		}{w.Array})
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the one-key wire form. A value that cannot be
// decoded, such as a leaf of the wrong type or a vector of the wrong length,
// becomes the zero Value instead of failing the enclosing message.
func (v *Value) UnmarshalJSON(data []byte) error {
	*v = Value{}
	var w valueJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return nil
	}
	switch {
	case w.Int != nil:
		*v = IntValue(*w.Int)
	case w.Float != nil:
		*v = FloatValue(*w.Float)
	case w.Bool != nil:
		*v = BoolValue(*w.Bool)
	case w.Vector != nil:
		if len(w.Vector) != 3 {
			return nil
		}
		*v = VectorValue(w.Vector[0], w.Vector[1], w.Vector[2])
	case w.VectorXY != nil:
		if len(w.VectorXY) != 2 {
			return nil
		}
		*v = VectorXYValue(w.VectorXY[0], w.VectorXY[1])
	case w.String != nil:
		*v = StringValue(*w.String)
	case w.Array != nil:
		*v = ArrayValue(w.Array...)
	}
	return nil
}
