package knowledge

// Base maps a user-defined category name to an ordered list of canned
// response options. Keys are case-sensitive and unique; an empty list is a
// valid value (the category exists but has no options yet).
type Base map[string][]string

// Lookup returns the options for a category and whether the category exists.
func (b Base) Lookup(category string) ([]string, bool) {
	opts, ok := b[category]
	return opts, ok
}

// AddCategory creates an empty category. It reports false when the name is
// empty or already taken.
func (b Base) AddCategory(name string) bool {
	if name == "" {
		return false
	}
	if _, exists := b[name]; exists {
		return false
	}
	b[name] = []string{}
	return true
}

// RenameCategory moves the options of oldName under newName. It reports
// false when oldName is missing or newName is empty or already taken.
func (b Base) RenameCategory(oldName, newName string) bool {
	if newName == "" {
		return false
	}
	opts, ok := b[oldName]
	if !ok {
		return false
	}
	if _, taken := b[newName]; taken && newName != oldName {
		return false
	}
	delete(b, oldName)
	b[newName] = opts
	return true
}

func (b Base) RemoveCategory(name string) {
	delete(b, name)
}

// AddItem appends an option to a category. It reports false when the
// category is missing or the item is empty.
func (b Base) AddItem(category, item string) bool {
	if item == "" {
		return false
	}
	opts, ok := b[category]
	if !ok {
		return false
	}
	b[category] = append(opts, item)
	return true
}

// RemoveItem deletes every occurrence of item from a category, preserving
// the order of the rest.
func (b Base) RemoveItem(category, item string) {
	opts, ok := b[category]
	if !ok {
		return
	}
	out := opts[:0]
	for _, o := range opts {
		if o != item {
			out = append(out, o)
		}
	}
	b[category] = out
}

func (b Base) Clone() Base {
	out := make(Base, len(b))
	for k, v := range b {
		opts := make([]string, len(v))
		copy(opts, v)
		out[k] = opts
	}
	return out
}
