package vdom

import "strings"

// Classes returns the element's class list in order, without duplicates.
func (v *VNode) Classes() []string {
	fields := strings.Fields(v.Attr("class"))
	out := fields[:0]
	seen := make(map[string]bool, len(fields))
	for _, c := range fields {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// HasClass reports whether the element carries the class.
func (v *VNode) HasClass(class string) bool {
	for _, c := range strings.Fields(v.Attr("class")) {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass appends classes that are not already present.
// It reports whether the class attribute changed.
func (v *VNode) AddClass(classes ...string) bool {
	list := v.Classes()
	changed := false
	for _, c := range classes {
		if c == "" || containsString(list, c) {
			continue
		}
		list = append(list, c)
		changed = true
	}
	if changed {
		v.SetAttr("class", strings.Join(list, " "))
	}
	return changed
}

// RemoveClass drops the given classes.
// It reports whether the class attribute changed.
func (v *VNode) RemoveClass(classes ...string) bool {
	list := v.Classes()
	kept := make([]string, 0, len(list))
	for _, c := range list {
		if !containsString(classes, c) {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(list) {
		return false
	}
	if len(kept) == 0 {
		v.RemoveAttr("class")
	} else {
		v.SetAttr("class", strings.Join(kept, " "))
	}
	return true
}

// ToggleClass flips a class and returns whether it is now present.
func (v *VNode) ToggleClass(class string) bool {
	if v.HasClass(class) {
		v.RemoveClass(class)
		return false
	}
	v.AddClass(class)
	return true
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
