package usb

import (
	"fmt"
	"unicode/utf16"
)

// LangIDEnglishUS is the only language served by a StringTable.
const LangIDEnglishUS = 0x0409

// StringTable allocates string descriptor indices for a single device.
// Index 0 is reserved for the language ID list.
type StringTable struct {
	byIndex map[uint8]string
	byValue map[string]uint8
	next    uint8
}

// NewStringTable returns an empty table whose first allocated index is 1.
func NewStringTable() *StringTable {
	return &StringTable{
		byIndex: make(map[uint8]string),
		byValue: make(map[string]uint8),
		next:    1,
	}
}

// Intern returns the index of s, allocating one if s is new. Strings that
// do not fit a descriptor are rejected.
func (t *StringTable) Intern(s string) (uint8, error) {
	if idx, ok := t.byValue[s]; ok {
		return idx, nil
	}
	if n := len(utf16.Encode([]rune(s))); n > MaxStringUnits {
		return 0, fmt.Errorf("usb: string of %d UTF-16 units exceeds %d", n, MaxStringUnits)
	}
	if t.next == 0 {
		return 0, fmt.Errorf("usb: string table full")
	}
	idx := t.next
	t.byIndex[idx] = s
	t.byValue[s] = idx
	t.next++
	return idx, nil
}

// Lookup returns the string stored at idx.
func (t *StringTable) Lookup(idx uint8) (string, bool) {
	s, ok := t.byIndex[idx]
	return s, ok
}

// Len returns the number of interned strings.
func (t *StringTable) Len() int { return len(t.byIndex) }

// Descriptor returns the string descriptor for idx. Index 0 yields the
// language ID descriptor.
func (t *StringTable) Descriptor(idx uint8) ([]byte, bool) {
	if idx == 0 {
		return []byte{4, StringDescType, LangIDEnglishUS & 0xFF, LangIDEnglishUS >> 8}, true
	}
	s, ok := t.byIndex[idx]
	if !ok {
		return nil, false
	}
	return EncodeStringDescriptor(s), true
}

// Strings returns a copy of the index to string mapping.
func (t *StringTable) Strings() map[uint8]string {
	out := make(map[uint8]string, len(t.byIndex))
	for k, v := range t.byIndex {
		out[k] = v
	}
	return out
}
