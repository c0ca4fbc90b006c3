package dispatch

import "reflect"

// EventName derives the fully qualified dotted event name for identifier.
// If identifier is already a string, it is used verbatim. Otherwise its Go
// package path and type name are joined with a dot, giving every event type
// a name stable across packages without requiring manual registration.
func EventName(identifier interface{}) string {
	if name, ok := identifier.(string); ok {
		return name
	}

	t := reflect.TypeOf(identifier)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}
