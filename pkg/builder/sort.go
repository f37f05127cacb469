package builder

import (
	"cmp"
	"slices"
	"strings"

	"github.com/vanderheijden86/jointscope/pkg/model"
)

// splitNumericSuffix splits "bone_012" into "bone_" and "012".
func splitNumericSuffix(s string) (prefix, digits string) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	return s[:i], s[i:]
}

// compareDigits compares two decimal digit strings by value without parsing,
// so arbitrarily long suffixes cannot overflow.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return cmp.Compare(len(a), len(b))
	}
	return strings.Compare(a, b)
}

// CompareNames orders display names the way a person reads numbered names:
// prefix first, then the numeric value of the trailing digits, then the digit
// width. Zero-valued suffixes put the narrower width first and other values
// the wider, giving bone_, bone_0, bone_00, bone_001, bone_01, bone_1.
func CompareNames(a, b string) int {
	pa, da := splitNumericSuffix(a)
	pb, db := splitNumericSuffix(b)
	if c := strings.Compare(pa, pb); c != 0 {
		return c
	}
	if c := compareDigits(da, db); c != 0 {
		return c
	}
	if len(da) == len(db) {
		return 0
	}
	if strings.TrimLeft(da, "0") == "" {
		return cmp.Compare(len(da), len(db))
	}
	return cmp.Compare(len(db), len(da))
}

func sortManagers(ms []*model.Manager) {
	slices.SortStableFunc(ms, func(a, b *model.Manager) int {
		if c := CompareNames(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ObjectPath(), b.ObjectPath())
	})
}

func sortNodes(ns []*model.Node) {
	slices.SortStableFunc(ns, func(a, b *model.Node) int {
		if c := CompareNames(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ObjectPath(), b.ObjectPath())
	})
}

func sortFields(fs []*model.Field) {
	slices.SortStableFunc(fs, func(a, b *model.Field) int {
		return CompareNames(a.Name, b.Name)
	})
}
