// internal/canon/canon.go
//
// Canonical JSON serialization used for all content hashing. Two values
// that differ only in map key order, struct field order, or irrelevant
// extra fields on the caller side must hash identically, so the journal
// and the manifest share this one primitive instead of hashing whatever
// encoding/json happens to emit.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Circular is emitted in place of a value that has already been visited
// on the current path. It keeps Stringify total over cyclic inputs.
const Circular = `"[Circular]"`

// Stringify renders v as canonical JSON: object keys sorted, arrays in
// order, decimals in their normalized string form, cycles replaced by
// the Circular sentinel.
func Stringify(v any) string {
	var sb strings.Builder
	write(&sb, reflect.ValueOf(v), map[uintptr]bool{})
	return sb.String()
}

// HashHex returns the hex sha256 of the canonical form of v.
func HashHex(v any) string {
	return HashBytes([]byte(Stringify(v)))
}

// HashBytes returns the hex sha256 of raw bytes.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

var (
	decimalType = reflect.TypeOf(decimal.Decimal{})
	timeType    = reflect.TypeOf(time.Time{})
)

func write(sb *strings.Builder, v reflect.Value, seen map[uintptr]bool) {
	if !v.IsValid() {
		sb.WriteString("null")
		return
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			sb.WriteString("null")
			return
		}
		if v.Kind() == reflect.Pointer {
			p := v.Pointer()
			if seen[p] {
				sb.WriteString(Circular)
				return
			}
			seen[p] = true
			defer delete(seen, p)
		}
		write(sb, v.Elem(), seen)

	case reflect.Map:
		if v.IsNil() {
			sb.WriteString("null")
			return
		}
		p := v.Pointer()
		if seen[p] {
			sb.WriteString(Circular)
			return
		}
		seen[p] = true
		defer delete(seen, p)

		keys := make([]string, 0, v.Len())
		byKey := make(map[string]reflect.Value, v.Len())
		for _, k := range v.MapKeys() {
			name := mapKey(k)
			keys = append(keys, name)
			byKey[name] = v.MapIndex(k)
		}
		sort.Strings(keys)

		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(quote(k))
			sb.WriteByte(':')
			write(sb, byKey[k], seen)
		}
		sb.WriteByte('}')

	case reflect.Slice:
		if v.IsNil() {
			sb.WriteString("null")
			return
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			sb.WriteString(quote(string(v.Bytes())))
			return
		}
		p := v.Pointer()
		if seen[p] {
			sb.WriteString(Circular)
			return
		}
		seen[p] = true
		defer delete(seen, p)
		writeArray(sb, v, seen)

	case reflect.Array:
		writeArray(sb, v, seen)

	case reflect.Struct:
		switch v.Type() {
		case decimalType:
			d := v.Interface().(decimal.Decimal)
			sb.WriteString(quote(d.String()))
		case timeType:
			t := v.Interface().(time.Time)
			sb.WriteString(quote(t.UTC().Format(time.RFC3339Nano)))
		default:
			writeStruct(sb, v, seen)
		}

	case reflect.String:
		sb.WriteString(quote(v.String()))

	case reflect.Bool:
		sb.WriteString(strconv.FormatBool(v.Bool()))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sb.WriteString(strconv.FormatInt(v.Int(), 10))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		sb.WriteString(strconv.FormatUint(v.Uint(), 10))

	case reflect.Float32, reflect.Float64:
		sb.WriteString(formatFloat(v.Float()))

	default:
		// chan, func, unsafe pointers have no canonical form
		sb.WriteString("null")
	}
}

func writeArray(sb *strings.Builder, v reflect.Value, seen map[uintptr]bool) {
	sb.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		write(sb, v.Index(i), seen)
	}
	sb.WriteByte(']')
}

type field struct {
	name string
	val  reflect.Value
}

func writeStruct(sb *strings.Builder, v reflect.Value, seen map[uintptr]bool) {
	if n, ok := v.Interface().(json.Number); ok {
		sb.WriteString(string(n))
		return
	}

	fields := make([]field, 0, v.NumField())
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, omitEmpty, skip := jsonName(sf)
		if skip {
			continue
		}
		fv := v.Field(i)
		if sf.Anonymous && sf.Tag.Get("json") == "" && fv.Kind() == reflect.Struct {
			// embedded struct without a tag flattens, like encoding/json
			et := fv.Type()
			for j := 0; j < et.NumField(); j++ {
				esf := et.Field(j)
				if !esf.IsExported() {
					continue
				}
				en, eo, es := jsonName(esf)
				if es || (eo && fv.Field(j).IsZero()) {
					continue
				}
				fields = append(fields, field{en, fv.Field(j)})
			}
			continue
		}
		if omitEmpty && fv.IsZero() {
			continue
		}
		fields = append(fields, field{name, fv})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].name < fields[j].name })

	sb.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(quote(f.name))
		sb.WriteByte(':')
		write(sb, f.val, seen)
	}
	sb.WriteByte('}')
}

func jsonName(sf reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = sf.Name
	}
	for _, p := range parts[1:] {
		if p == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func mapKey(k reflect.Value) string {
	switch k.Kind() {
	case reflect.String:
		return k.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10)
	default:
		return Stringify(k.Interface())
	}
}

// formatFloat matches the shortest round-trip form encoding/json emits
// for the overwhelmingly common range of metric values.
func formatFloat(f float64) string {
	abs := f
	if abs < 0 {
		abs = -abs
	}
	fmtByte := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		fmtByte = 'e'
	}
	s := strconv.FormatFloat(f, fmtByte, -1, 64)
	if fmtByte == 'e' {
		// encoding/json cleans e-09 up to e-9
		if n := len(s); n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
	}
	return s
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
