// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package offbench

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"
	"unsafe"
)

// FieldType is the device type of one record field.
type FieldType int

const (
	Float32 FieldType = iota
	Uint32
	Int32
)

// Width returns the field width in bytes.
func (t FieldType) Width() int { return 4 }

// CType returns the OpenCL C spelling of the type.
func (t FieldType) CType() string {
	switch t {
	case Uint32:
		return "uint"
	case Int32:
		return "int"
	default:
		return "float"
	}
}

func (t FieldType) kind() reflect.Kind {
	switch t {
	case Uint32:
		return reflect.Uint32
	case Int32:
		return reflect.Int32
	default:
		return reflect.Float32
	}
}

// Field is one fixed-width field of a record.
type Field struct {
	Name   string
	Type   FieldType
	Offset int
}

// Schema is a packed, fixed-layout record description shared by the host
// code and the kernel source. All fields are little-endian.
type Schema struct {
	Name   string
	Fields []Field
	Order  binary.ByteOrder
	size   int
	scalar bool
}

// FieldDef names a field for NewSchema.
type FieldDef struct {
	Name string
	Type FieldType
}

// NewSchema lays out fields back to back with no padding.
func NewSchema(name string, defs ...FieldDef) Schema {
	s := Schema{Name: name, Order: binary.LittleEndian}
	for _, d := range defs {
		s.Fields = append(s.Fields, Field{Name: d.Name, Type: d.Type, Offset: s.size})
		s.size += d.Type.Width()
	}
	return s
}

// ScalarSchema describes a plain array of t, e.g. a float matrix.
func ScalarSchema(t FieldType) Schema {
	s := NewSchema(t.CType(), FieldDef{Name: "value", Type: t})
	s.scalar = true
	return s
}

// Size returns the record size in bytes.
func (s Schema) Size() int { return s.size }

// Scalar reports whether the schema is a bare scalar array.
func (s Schema) Scalar() bool { return s.scalar }

// Records returns how many whole records fit in b.
func (s Schema) Records(b []byte) int {
	if s.size == 0 {
		return 0
	}
	return len(b) / s.size
}

// Value decodes field f of record i as float64.
func (s Schema) Value(b []byte, i, f int) float64 {
	fd := s.Fields[f]
	off := i*s.size + fd.Offset
	bits := s.Order.Uint32(b[off : off+4])
	switch fd.Type {
	case Uint32:
		return float64(bits)
	case Int32:
		return float64(int32(bits))
	default:
		return float64(math.Float32frombits(bits))
	}
}

// Declaration renders the schema as an OpenCL C packed struct typedef.
func (s Schema) Declaration() string {
	if s.scalar {
		return ""
	}
	var b strings.Builder
	b.WriteString("typedef struct __attribute__((packed)) {\n")
	for _, f := range s.Fields {
		fmt.Fprintf(&b, "    %s %s;\n", f.Type.CType(), f.Name)
	}
	fmt.Fprintf(&b, "} %s;\n", s.Name)
	return b.String()
}

// ValidateGo checks that the Go type of v has exactly the schema layout,
// so that View can reinterpret staging memory as []T.
func (s Schema) ValidateGo(v any) error {
	if !hostLittleEndian() {
		return NewError(KindInvalidArgument, "Schema", "host byte order is not little-endian", nil)
	}
	t := reflect.TypeOf(v)
	if t == nil {
		return NewError(KindInvalidArgument, "Schema", "nil type", nil)
	}
	if int(t.Size()) != s.size {
		return NewError(KindInvalidArgument, "Schema",
			fmt.Sprintf("%s: Go type %s is %d bytes, schema is %d", s.Name, t, t.Size(), s.size), nil)
	}
	if s.scalar {
		if t.Kind() != s.Fields[0].Type.kind() {
			return NewError(KindInvalidArgument, "Schema",
				fmt.Sprintf("%s: Go type %s, want %s", s.Name, t, s.Fields[0].Type.kind()), nil)
		}
		return nil
	}
	if t.Kind() != reflect.Struct || t.NumField() != len(s.Fields) {
		return NewError(KindInvalidArgument, "Schema",
			fmt.Sprintf("%s: Go type %s does not have %d fields", s.Name, t, len(s.Fields)), nil)
	}
	for i, f := range s.Fields {
		sf := t.Field(i)
		if int(sf.Offset) != f.Offset || sf.Type.Kind() != f.Type.kind() {
			return NewError(KindInvalidArgument, "Schema",
				fmt.Sprintf("%s.%s: Go field %s %s at offset %d, want %s at offset %d",
					s.Name, f.Name, sf.Name, sf.Type, sf.Offset, f.Type.kind(), f.Offset), nil)
		}
	}
	return nil
}

var (
	commentRe = regexp.MustCompile(`(?s)/\*.*?\*/|//[^\n]*`)
	typedefRe = regexp.MustCompile(`(?s)typedef\s+struct[^{]*\{([^}]*)\}\s*(\w+)\s*;`)
	structRe  = regexp.MustCompile(`(?s)struct\s+(?:__attribute__\s*\(\([^)]*\)\)\s*)?(\w+)\s*\{([^}]*)\}\s*;`)
)

// ValidateSource checks that the kernel source declares a struct named
// like the schema with the same field names and types in order. Scalar
// schemas need no declaration.
func (s Schema) ValidateSource(source string) error {
	if s.scalar {
		return nil
	}
	src := commentRe.ReplaceAllString(source, "")

	var body string
	for _, m := range typedefRe.FindAllStringSubmatch(src, -1) {
		if m[2] == s.Name {
			body = m[1]
		}
	}
	if body == "" {
		for _, m := range structRe.FindAllStringSubmatch(src, -1) {
			if m[1] == s.Name {
				body = m[2]
			}
		}
	}
	if body == "" {
		return NewBuildError("Schema", fmt.Sprintf("struct %s not declared in kernel source", s.Name),
			"expected declaration:\n"+s.Declaration(), nil)
	}

	var got []FieldDef
	for _, decl := range strings.Split(body, ";") {
		words := strings.Fields(decl)
		if len(words) < 2 {
			continue
		}
		name := words[len(words)-1]
		ft, ok := parseCType(strings.Join(words[:len(words)-1], " "))
		if !ok {
			return NewBuildError("Schema",
				fmt.Sprintf("struct %s: unsupported field type in %q", s.Name, strings.TrimSpace(decl)),
				"expected declaration:\n"+s.Declaration(), nil)
		}
		got = append(got, FieldDef{Name: name, Type: ft})
	}

	mismatch := len(got) != len(s.Fields)
	for i := 0; !mismatch && i < len(got); i++ {
		mismatch = got[i].Name != s.Fields[i].Name || got[i].Type != s.Fields[i].Type
	}
	if mismatch {
		return NewBuildError("Schema",
			fmt.Sprintf("struct %s in kernel source does not match host layout", s.Name),
			"expected declaration:\n"+s.Declaration(), nil)
	}
	return nil
}

func parseCType(t string) (FieldType, bool) {
	t = strings.TrimSpace(strings.ReplaceAll(t, "const", ""))
	switch t {
	case "float":
		return Float32, true
	case "uint", "unsigned int", "unsigned", "uint32_t":
		return Uint32, true
	case "int", "int32_t", "signed int":
		return Int32, true
	}
	return 0, false
}

func hostLittleEndian() bool {
	return binary.NativeEndian.Uint16([]byte{1, 0}) == 1
}

// View reinterprets b as a slice of T without copying. T must be a
// fixed-size type whose layout was checked with Schema.ValidateGo.
func View[T any](b []byte) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if len(b) < size || size == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), len(b)/size)
}

// AsBytes reinterprets s as its backing bytes without copying.
func AsBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}
