package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LogicalKey names a mapped game control, independent of the physical button bit
// it is bound to. The canonical display form is the identity.
type LogicalKey string

// Named keys of a seven-key controller plus its four effector buttons.
const (
	Key1 LogicalKey = "Key1"
	Key2 LogicalKey = "Key2"
	Key3 LogicalKey = "Key3"
	Key4 LogicalKey = "Key4"
	Key5 LogicalKey = "Key5"
	Key6 LogicalKey = "Key6"
	Key7 LogicalKey = "Key7"
	E1   LogicalKey = "E1"
	E2   LogicalKey = "E2"
	E3   LogicalKey = "E3"
	E4   LogicalKey = "E4"
)

const otherPrefix = "Other-"

// NamedKeys lists the fixed keys in display order.
var NamedKeys = []LogicalKey{Key1, Key2, Key3, Key4, Key5, Key6, Key7, E1, E2, E3, E4}

// OtherKey returns the fallback key for an unnamed control.
func OtherKey(id uint16) LogicalKey {
	return LogicalKey(otherPrefix + strconv.FormatUint(uint64(id), 10))
}

// ParseLogicalKey validates a display form such as "Key3" or "Other-12".
func ParseLogicalKey(s string) (LogicalKey, error) {
	s = strings.TrimSpace(s)
	for _, k := range NamedKeys {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	if rest, ok := strings.CutPrefix(s, otherPrefix); ok {
		id, err := strconv.ParseUint(rest, 10, 16)
		if err != nil {
			return "", fmt.Errorf("invalid Other id %q", rest)
		}
		return OtherKey(uint16(id)), nil
	}
	return "", fmt.Errorf("unknown logical key %q", s)
}

// String implements fmt.Stringer.
func (k LogicalKey) String() string {
	return string(k)
}

// OtherID reports the numeric id of an Other key.
func (k LogicalKey) OtherID() (uint16, bool) {
	rest, ok := strings.CutPrefix(string(k), otherPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(id), true
}

func (k LogicalKey) rank() (int, int) {
	for i, named := range NamedKeys {
		if k == named {
			return 0, i
		}
	}
	if id, ok := k.OtherID(); ok {
		return 1, int(id)
	}
	return 2, 0
}

// Less orders named keys first in declaration order, then Other keys by id.
func (k LogicalKey) Less(other LogicalKey) bool {
	ag, ai := k.rank()
	bg, bi := other.rank()
	if ag != bg {
		return ag < bg
	}
	if ai != bi {
		return ai < bi
	}
	return k < other
}

// SortKeys sorts keys in place using Less.
func SortKeys(keys []LogicalKey) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Less(keys[j])
	})
}

// SortedKeys returns the keys of m in display order.
func SortedKeys[V any](m map[LogicalKey]V) []LogicalKey {
	keys := make([]LogicalKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}
