package codec

import (
	"reflect"
	"strings"
	"sync"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/all"
)

var (
	nameTableOnce sync.Once
	nameTable     map[uint32]string
)

// buildNameTable walks all.Dialect.Messages once, the same slice
// mavlink_custom.GetCombinedDialect iterates in the teacher's codebase, and
// derives a SCREAMING_SNAKE_CASE name for each message id from its Go type
// name. This extends the teacher's getMessageTypeName helper (which strips
// the "*common.Message"/"common.Message"/"Message" prefix off a %T format)
// with a PascalCase -> SCREAMING_SNAKE_CASE conversion, since MAVLink
// message names are conventionally upper-snake-case.
func buildNameTable() map[uint32]string {
	table := make(map[uint32]string, len(all.Dialect.Messages))
	for _, msg := range all.Dialect.Messages {
		table[msg.GetID()] = screamingSnake(typeName(msg))
	}
	return table
}

func typeName(v interface{}) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.Name()
	name = strings.TrimPrefix(name, "Message")
	return name
}

func screamingSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// MessageName returns the MAVLink message name for id, or "UNKNOWN" if id
// isn't in the compiled-in dialect.
func MessageName(id uint32) string {
	nameTableOnce.Do(func() { nameTable = buildNameTable() })
	if name, ok := nameTable[id]; ok {
		return name
	}
	return "UNKNOWN"
}

// targetField records where, in a known message's payload, its
// target_system/target_component bytes fall.
type targetField struct {
	sysOffset, compOffset int
}

// targetedMessages lists common-dialect messages known to carry
// target_system/target_component, at the wire offsets mavlink's C-struct
// field reordering (fields sorted largest-first) places them in the v1
// payload layout. This is necessarily a partial list — see DESIGN.md.
// SET_MODE (id 11) deliberately has no entry here: it carries only
// target_system, with no target_component, so it doesn't fit this table's
// system+component addressing model.
var targetedMessages = map[uint32]targetField{
	76: {sysOffset: 30, compOffset: 31}, // COMMAND_LONG
	75: {sysOffset: 30, compOffset: 31}, // COMMAND_INT (shares the same tail layout)
	23: {sysOffset: 4, compOffset: 5},   // PARAM_SET
	20: {sysOffset: 2, compOffset: 3},   // PARAM_REQUEST_READ
}
