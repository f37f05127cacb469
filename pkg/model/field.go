package model

import (
	"fmt"
	"strings"
	"sync"
)

// FieldKind is the declared value type of a Field.
type FieldKind string

const (
	KindString FieldKind = "string"
	KindName   FieldKind = "name"
	KindText   FieldKind = "text"
	KindInt    FieldKind = "int"
	KindFloat  FieldKind = "float"
	KindBool   FieldKind = "bool"
)

// ParseFieldKind maps a document kind string to a FieldKind.
// An empty string defaults to KindString.
func ParseFieldKind(s string) (FieldKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string", "str", "fstring":
		return KindString, nil
	case "name", "fname":
		return KindName, nil
	case "text", "ftext":
		return KindText, nil
	case "int", "integer":
		return KindInt, nil
	case "float", "double":
		return KindFloat, nil
	case "bool", "boolean":
		return KindBool, nil
	default:
		return "", fmt.Errorf("unknown field kind %q", s)
	}
}

// IsStringLike reports whether values of this kind take part in find/replace.
func (k FieldKind) IsStringLike() bool {
	return k == KindString || k == KindName || k == KindText
}

// Tag is the tag token used in searchable strings, e.g. "FName".
func (k FieldKind) Tag() string {
	switch k {
	case KindString:
		return "FString"
	case KindName:
		return "FName"
	case KindText:
		return "FText"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindBool:
		return "Bool"
	default:
		return "Unknown"
	}
}

// FieldFlags mirror the editor's property metadata.
type FieldFlags uint8

const (
	FlagEdit FieldFlags = 1 << iota
	FlagAdvancedDisplay
	FlagDisableEditOnInstance
)

var flagNames = []struct {
	flag FieldFlags
	name string
}{
	{FlagEdit, "edit"},
	{FlagAdvancedDisplay, "advanced"},
	{FlagDisableEditOnInstance, "disable_on_instance"},
}

// ParseFlags converts document flag names to FieldFlags. Unknown names are ignored.
func ParseFlags(names []string) FieldFlags {
	var f FieldFlags
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		for _, fn := range flagNames {
			if fn.name == n {
				f |= fn.flag
			}
		}
	}
	return f
}

// Names returns the document names of the set flags.
func (f FieldFlags) Names() []string {
	var out []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			out = append(out, fn.name)
		}
	}
	return out
}

// Field is a single editable property on a Node. The value may be read by the
// filter while a replace on the UI side writes it, so access goes through the lock.
type Field struct {
	// ID is the storage key when loaded from a database, 0 otherwise.
	ID    int64
	Name  string
	Kind  FieldKind
	Flags FieldFlags

	owner *Node

	mu    sync.RWMutex
	value string
}

// NewField creates a detached field. Attach it with Node.AddField.
func NewField(name string, kind FieldKind, flags FieldFlags, value string) *Field {
	return &Field{Name: name, Kind: kind, Flags: flags, value: value}
}

func (f *Field) Value() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

func (f *Field) SetValue(v string) {
	f.mu.Lock()
	f.value = v
	f.mu.Unlock()
}

// ReplaceFirst swaps the first occurrence of from with to and reports whether
// anything changed.
func (f *Field) ReplaceFirst(from, to string) bool {
	if from == "" || !f.Kind.IsStringLike() {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !strings.Contains(f.value, from) {
		return false
	}
	f.value = strings.Replace(f.value, from, to, 1)
	return true
}

// Owner returns the node the field belongs to, or nil if detached.
func (f *Field) Owner() *Node {
	return f.owner
}

// Visible reports whether the field is surfaced in the browser: editable,
// not advanced and not disabled on instances.
func (f *Field) Visible() bool {
	return f.Flags&FlagEdit != 0 &&
		f.Flags&FlagAdvancedDisplay == 0 &&
		f.Flags&FlagDisableEditOnInstance == 0
}

func (f *Field) ObjectName() string { return f.Name }

func (f *Field) ObjectPath() string {
	if f.owner == nil {
		return ":" + f.Name
	}
	return f.owner.ObjectPath() + ":" + f.Name
}
