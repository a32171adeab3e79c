// Package memutil holds the small, dependency-free helpers shared across
// tiers: raw memory copy for realloc's alloc+copy+free path, plus
// zero-copy string/byte conversions, buffer sizing, stack-trace
// formatting and JSON stats pretty-printing, which no other package in
// the module calls.
package memutil

import "unsafe"
import "reflect"
import "fmt"
import "bytes"
import "strings"
import "encoding/json"

// Memcpy copies a memory block of length `ln` from `src` to `dst`. Useful
// when the memory block is obtained outside the Go runtime's allocator,
// such as an OS-mapped super-pool or large block.
func Memcpy(dst, src unsafe.Pointer, ln int) int {
	var srcnd, dstnd []byte
	srcsl := (*reflect.SliceHeader)(unsafe.Pointer(&srcnd))
	srcsl.Len, srcsl.Cap = ln, ln
	srcsl.Data = uintptr(src)
	dstsl := (*reflect.SliceHeader)(unsafe.Pointer(&dstnd))
	dstsl.Len, dstsl.Cap = ln, ln
	dstsl.Data = uintptr(dst)
	return copy(dstnd, srcnd)
}

// Bytes2str morphs a byte slice to a string without copying. The source
// byte-slice must remain in scope as long as the string is in scope.
func Bytes2str(bytes []byte) string {
	if bytes == nil {
		return ""
	}
	sl := (*reflect.SliceHeader)(unsafe.Pointer(&bytes))
	st := &reflect.StringHeader{Data: sl.Data, Len: sl.Len}
	return *(*string)(unsafe.Pointer(st))
}

// Str2bytes morphs a string to a byte-slice without copying. The source
// string must remain in scope as long as the byte-slice is in scope.
func Str2bytes(str string) []byte {
	if str == "" {
		return nil
	}
	st := (*reflect.StringHeader)(unsafe.Pointer(&str))
	sl := &reflect.SliceHeader{Data: st.Data, Len: st.Len, Cap: st.Len}
	return *(*[]byte)(unsafe.Pointer(sl))
}

// GetStacktrace returns a stack-trace in human readable format, skipping
// the first `skip` frames.
func GetStacktrace(skip int, stack []byte) string {
	var buf bytes.Buffer
	lines := strings.Split(string(stack), "\n")
	if skip*2 < len(lines) {
		lines = lines[skip*2:]
	}
	for _, call := range lines {
		buf.WriteString(fmt.Sprintf("%s\n", call))
	}
	return buf.String()
}

// Fixbuffer expands the buffer if its capacity is less than size and
// returns the buffer sliced to size length.
func Fixbuffer(buffer []byte, size int64) []byte {
	if buffer == nil || int64(cap(buffer)) < size {
		buffer = make([]byte, size)
	}
	return buffer[:size]
}

// Prettystats marshals stats as JSON, indented if `pretty` is true.
func Prettystats(stats map[string]interface{}, pretty bool) string {
	if pretty {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			panic(err)
		}
		return string(data)
	}
	data, err := json.Marshal(stats)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// AbsInt64 returns the absolute value of an int64, except for -2^63,
// where the returned value is the same as the input.
func AbsInt64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
