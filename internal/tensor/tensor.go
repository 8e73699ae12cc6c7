// Package tensor is the numeric buffer boundary of the batch calling
// convention. Compiled batch functions accept any Buffer and validate it
// before touching its memory; Array is the in-tree implementation and
// FromDense adapts gonum matrices.
package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/xsjk/Sklearn-Freezer/internal/errs"
)

// DType is an element type tag.
type DType string

const (
	Float64 DType = "float64"
	Float32 DType = "float32"
)

// Buffer is an N-dimensional numeric buffer.
type Buffer interface {
	// Shape returns the extent of each dimension.
	Shape() []int

	// DType returns the element type.
	DType() DType

	// Contiguous reports whether elements are laid out row-major with no
	// gaps.
	Contiguous() bool

	// Float64s returns the backing elements when DType is Float64 and the
	// buffer is contiguous, and nil otherwise.
	Float64s() []float64
}

// Array is a strided buffer of float64 or float32 elements.
type Array struct {
	shape   []int
	strides []int
	offset  int
	f64     []float64
	f32     []float32
}

var _ Buffer = (*Array)(nil)

// New returns a zeroed contiguous float64 array.
func New(shape ...int) *Array {
	return &Array{
		shape:   append([]int(nil), shape...),
		strides: rowMajor(shape),
		f64:     make([]float64, product(shape)),
	}
}

// FromSlice wraps data as a contiguous float64 array. data is not copied.
func FromSlice(data []float64, shape ...int) (*Array, error) {
	if product(shape) != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, product(shape), len(data))
	}
	return &Array{shape: append([]int(nil), shape...), strides: rowMajor(shape), f64: data}, nil
}

// FromFloat32 wraps data as a contiguous float32 array.
func FromFloat32(data []float32, shape ...int) (*Array, error) {
	if product(shape) != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, product(shape), len(data))
	}
	return &Array{shape: append([]int(nil), shape...), strides: rowMajor(shape), f32: data}, nil
}

// FromRows copies rows into a contiguous [len(rows), cols] array.
func FromRows(rows [][]float64) (*Array, error) {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	a := New(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("row %d has %d values, row 0 has %d", i, len(r), cols)
		}
		copy(a.f64[i*cols:], r)
	}
	return a, nil
}

// Shape implements Buffer.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// DType implements Buffer.
func (a *Array) DType() DType {
	if a.f32 != nil {
		return Float32
	}
	return Float64
}

// Contiguous implements Buffer.
func (a *Array) Contiguous() bool {
	if a.offset != 0 {
		return false
	}
	want := rowMajor(a.shape)
	for i, s := range a.strides {
		if a.shape[i] > 1 && s != want[i] {
			return false
		}
	}
	return true
}

// Float64s implements Buffer.
func (a *Array) Float64s() []float64 {
	if a.f32 != nil || !a.Contiguous() {
		return nil
	}
	return a.f64[:product(a.shape)]
}

// Len returns the total number of elements.
func (a *Array) Len() int { return product(a.shape) }

// At returns the element at idx as float64.
func (a *Array) At(idx ...int) float64 {
	off := a.offset
	for i, v := range idx {
		off += v * a.strides[i]
	}
	if a.f32 != nil {
		return float64(a.f32[off])
	}
	return a.f64[off]
}

// T returns the transposed view of a 2-D array. The view shares memory
// and is not contiguous unless one dimension is 1.
func (a *Array) T() *Array {
	if len(a.shape) != 2 {
		panic("tensor: T on non-matrix")
	}
	return &Array{
		shape:   []int{a.shape[1], a.shape[0]},
		strides: []int{a.strides[1], a.strides[0]},
		offset:  a.offset,
		f64:     a.f64,
		f32:     a.f32,
	}
}

// Column returns column j of a 2-D array as a strided [rows, 1] view.
func (a *Array) Column(j int) *Array {
	return &Array{
		shape:   []int{a.shape[0], 1},
		strides: []int{a.strides[0], 1},
		offset:  a.offset + j*a.strides[1],
		f64:     a.f64,
		f32:     a.f32,
	}
}

func rowMajor(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// dense adapts a gonum matrix.
type dense struct {
	m *mat.Dense
}

// FromDense exposes m as a Buffer without copying. It is contiguous when
// the matrix stride equals its column count.
func FromDense(m *mat.Dense) Buffer {
	return dense{m: m}
}

func (d dense) Shape() []int {
	r, c := d.m.Dims()
	return []int{r, c}
}

func (dense) DType() DType { return Float64 }

func (d dense) Contiguous() bool {
	raw := d.m.RawMatrix()
	return raw.Rows <= 1 || raw.Stride == raw.Cols
}

func (d dense) Float64s() []float64 {
	if !d.Contiguous() {
		return nil
	}
	raw := d.m.RawMatrix()
	return raw.Data[:raw.Rows*raw.Cols]
}

// CheckMatrix validates b as a contiguous [N, cols] float64 matrix and
// returns its elements and N. Every violation is a TypeMismatch error.
func CheckMatrix(b Buffer, cols int) ([]float64, int, error) {
	if b == nil {
		return nil, 0, errs.TypeMismatch("batch input is nil")
	}
	shape := b.Shape()
	if len(shape) != 2 {
		return nil, 0, errs.TypeMismatch("batch input must have 2 dimensions, got %d", len(shape))
	}
	if dt := b.DType(); dt != Float64 {
		return nil, 0, errs.TypeMismatch("batch input must be %s, got %s", Float64, dt)
	}
	if shape[1] != cols {
		return nil, 0, errs.TypeMismatch("batch input has %d columns, model expects %d", shape[1], cols)
	}
	if !b.Contiguous() {
		return nil, 0, errs.TypeMismatch("batch input must be contiguous")
	}
	data := b.Float64s()
	if len(data) != shape[0]*shape[1] {
		return nil, 0, errs.TypeMismatch("batch input exposes %d elements for shape %v", len(data), shape)
	}
	return data, shape[0], nil
}
