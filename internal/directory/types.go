package directory

// Entry is a single directory object: its distinguished name plus the
// requested attributes. Attribute names keep the exact casing they were
// requested with.
type Entry struct {
	DN    string
	Attrs map[string][]string
}

// Value returns the first value of the named attribute, or "" when the
// attribute is absent.
func (e Entry) Value(name string) string {
	if vals := e.Attrs[name]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Values returns all values of the named attribute.
func (e Entry) Values(name string) []string {
	return e.Attrs[name]
}

// Query describes one subtree search.
type Query struct {
	BaseDN     string
	Filter     string
	Attributes []string
}
