package model

import (
	"sort"
	"strings"
)

// FieldErrors maps a field name to a human readable validation message.
// It is returned for malformed input before any write reaches storage.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, field+" "+e[field])
	}

	return "validation failed: " + strings.Join(msgs, "; ")
}
