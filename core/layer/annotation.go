package layer

import "sort"

// Annotation is one named-attribute record attached to a span location.
// Values are stored for every attribute the layer declares; attributes the
// caller left unset hold the layer's configured default.
type Annotation struct {
	values map[string]interface{}
}

// newAnnotation builds an annotation covering exactly the given attribute
// names, filling unset names from defaults. The caller has already rejected
// undeclared keys.
func newAnnotation(attributes []string, values, defaults map[string]interface{}) *Annotation {
	m := make(map[string]interface{}, len(attributes))
	for _, attr := range attributes {
		if v, ok := values[attr]; ok {
			m[attr] = v
		} else if d, ok := defaults[attr]; ok {
			m[attr] = d
		} else {
			m[attr] = nil
		}
	}
	return &Annotation{values: m}
}

// Value returns the stored value for attr and whether attr is present.
// Schema validation happens at the Span level; this is raw access.
func (a *Annotation) Value(attr string) (interface{}, bool) {
	v, ok := a.values[attr]
	return v, ok
}

// Values returns a copy of the attribute map.
func (a *Annotation) Values() map[string]interface{} {
	out := make(map[string]interface{}, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

// Attributes returns the annotation's attribute names in sorted order.
func (a *Annotation) Attributes() []string {
	names := make([]string, 0, len(a.values))
	for k := range a.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Equal reports whether two annotations hold the same attribute values.
// Values are compared with ==; non-comparable values compare unequal.
func (a *Annotation) Equal(b *Annotation) bool {
	if len(a.values) != len(b.values) {
		return false
	}
	for k, av := range a.values {
		bv, ok := b.values[k]
		if !ok || !looseEqual(av, bv) {
			return false
		}
	}
	return true
}

// looseEqual compares two attribute values, guarding against panics on
// non-comparable types.
func looseEqual(a, b interface{}) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
