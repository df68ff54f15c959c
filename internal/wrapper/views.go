package wrapper

import (
	"bytes"
	"unsafe"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/errs"
)

// Plain is the set of fixed-size types a native query may return.
type Plain interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~uintptr | ~float32 | ~float64
}

// Scalar returns a cached query reinterpreted as a T. On error the value is
// the zero T, which may also be a legitimate answer: check err.
func Scalar[T Plain](w *Wrapper, secondary cl.Handle, domain cl.InfoDomain, param cl.Param) (T, error) {
	var zero T
	b, err := w.Info(secondary, domain, param)
	if err != nil {
		return zero, err
	}
	return DecodeScalar[T](b)
}

// Array returns a cached query reinterpreted as a []T, or nil on error. The
// slice is a copy and may be modified.
func Array[T Plain](w *Wrapper, secondary cl.Handle, domain cl.InfoDomain, param cl.Param) ([]T, error) {
	b, err := w.Info(secondary, domain, param)
	if err != nil {
		return nil, err
	}
	return DecodeArray[T](b)
}

// String returns a cached query as a string without its NUL terminator.
func String(w *Wrapper, secondary cl.Handle, domain cl.InfoDomain, param cl.Param) (string, error) {
	b, err := w.Info(secondary, domain, param)
	if err != nil {
		return "", err
	}
	return DecodeString(b), nil
}

// DecodeScalar reinterprets the first sizeof(T) bytes of b as a T.
func DecodeScalar[T Plain](b []byte) (T, error) {
	var v T
	n := int(unsafe.Sizeof(v))
	if len(b) < n {
		return v, errs.New(errs.InvalidData, "decode", "%d bytes cannot hold a %d byte value", len(b), n)
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), n), b)
	return v, nil
}

// DecodeArray reinterprets b as a []T. Trailing bytes that do not fill a
// whole element are an error.
func DecodeArray[T Plain](b []byte) ([]T, error) {
	var v T
	n := int(unsafe.Sizeof(v))
	if len(b)%n != 0 {
		return nil, errs.New(errs.InvalidData, "decode", "%d bytes is not a multiple of %d", len(b), n)
	}
	out := make([]T, len(b)/n)
	if len(out) > 0 {
		copy(unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), len(b)), b)
	}
	return out, nil
}

// DecodeString converts a NUL-terminated native string.
func DecodeString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
