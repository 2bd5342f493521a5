// Package errors derives low-cardinality labels from Go errors so metric
// tags stay bounded.
package errors

import (
	stderrors "errors"
	"reflect"
	"strings"
)

// Classify reduces an error to a stable type label for metric tags. The
// chain is unwrapped to its root first, so a wrapped driver error tags as
// the driver type rather than *fmt.wrapError.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	root := err
	for {
		next := stderrors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}

	t := reflect.TypeOf(root)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	label := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	label = strings.ReplaceAll(label, ".", "_")
	if label == "" {
		return "unknown"
	}
	return label
}
