package widget

import (
	"fmt"
	"mime"
	"strings"
)

// Predicate decides whether a selected file is accepted for upload.
// It is a client-side convenience filter, not a security boundary.
type Predicate interface {
	Accept(f File) bool
}

// NameFunc adapts a plain filename test to a Predicate.
type NameFunc func(name string) bool

// Accept implements Predicate.
func (fn NameFunc) Accept(f File) bool { return fn(f.Name) }

// MIMEType accepts files whose MIME type matches t, ignoring parameters.
func MIMEType(t string) Predicate {
	want := strings.ToLower(t)
	return predicateFunc(func(f File) bool {
		mt, _, err := mime.ParseMediaType(f.MIMEType)
		if err != nil {
			return false
		}
		return mt == want
	})
}

// Extension accepts names ending in ext, case-insensitively.
func Extension(ext string) Predicate {
	suffix := strings.ToLower(ext)
	return NameFunc(func(name string) bool {
		return strings.HasSuffix(strings.ToLower(name), suffix)
	})
}

// Contains accepts names containing sub, case-insensitively.
func Contains(sub string) Predicate {
	needle := strings.ToLower(sub)
	return NameFunc(func(name string) bool {
		return strings.Contains(strings.ToLower(name), needle)
	})
}

// All accepts a file only when every predicate accepts it.
// Nil entries are skipped.
func All(preds ...Predicate) Predicate {
	return predicateFunc(func(f File) bool {
		for _, p := range preds {
			if p != nil && !p.Accept(f) {
				return false
			}
		}
		return true
	})
}

type predicateFunc func(File) bool

func (fn predicateFunc) Accept(f File) bool { return fn(f) }

// Named filter presets.
const (
	FilterNone    = "none"
	FilterPDFMIME = "pdf-mime"
	FilterPDFExt  = "pdf-ext"
	FilterPlanPDF = "plan-pdf"
	FilterCustom  = "custom"
)

// FilterSpec describes a predicate by name, with the fields used by the
// custom preset.
type FilterSpec struct {
	Name      string
	Contains  string
	Extension string
	MIMEType  string
}

// PredicateFor builds the Predicate named by spec. A nil Predicate means
// every file is accepted and the selection summary carries no match counts.
func PredicateFor(spec FilterSpec) (Predicate, error) {
	switch spec.Name {
	case "", FilterNone:
		return nil, nil
	case FilterPDFMIME:
		return MIMEType("application/pdf"), nil
	case FilterPDFExt:
		return Extension(".pdf"), nil
	case FilterPlanPDF:
		return All(Contains("plan"), Extension(".pdf")), nil
	case FilterCustom:
		var preds []Predicate
		if spec.Contains != "" {
			preds = append(preds, Contains(spec.Contains))
		}
		if spec.Extension != "" {
			preds = append(preds, Extension(spec.Extension))
		}
		if spec.MIMEType != "" {
			preds = append(preds, MIMEType(spec.MIMEType))
		}
		if len(preds) == 0 {
			return nil, fmt.Errorf("custom filter needs at least one of contains, extension, mime_type")
		}
		return All(preds...), nil
	default:
		return nil, fmt.Errorf("unknown filter: %s", spec.Name)
	}
}
