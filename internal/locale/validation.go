package locale

import (
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// ValidationError represents a problem found in the translation files
type ValidationError struct {
	Type    string // "missing_translation", "unused_key", "duplicate_key", "template_mismatch"
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// ValidationResult contains all validation errors found
type ValidationResult struct {
	Errors []ValidationError
}

// HasErrors returns true if there are any validation errors
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// String returns a formatted string of all errors
func (r *ValidationResult) String() string {
	if !r.HasErrors() {
		return "No validation errors"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d validation errors:\n", len(r.Errors))
	for i, err := range r.Errors {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

func (r *ValidationResult) add(typ, format string, args ...interface{}) {
	r.Errors = append(r.Errors, ValidationError{Type: typ, Message: fmt.Sprintf(format, args...)})
}

// ValidateTranslations checks keys.go against every bundled language.
// It needs the package sources, so it is meant for tests rather than startup.
func ValidateTranslations() (*ValidationResult, error) {
	_, filename, _, _ := runtime.Caller(0)
	keys, err := extractMessageKeysFromFile(filepath.Join(filepath.Dir(filename), "keys.go"))
	if err != nil {
		return nil, fmt.Errorf("failed to extract message keys: %w", err)
	}

	translations := make(map[string]map[string]string, len(Languages))
	for _, lang := range Languages {
		file := fmt.Sprintf("locales/%s.json", lang)
		data, err := localizedata.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		var trans map[string]string
		if err := json.Unmarshal(data, &trans); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		translations[lang] = trans
	}

	result := &ValidationResult{}
	result.checkDuplicateKeys(keys)
	result.checkTranslations(keys, translations)
	return result, nil
}

func (r *ValidationResult) checkDuplicateKeys(keys []string) {
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if seen[key] {
			r.add("duplicate_key", "Duplicate key definition in keys.go: %s", key)
		}
		seen[key] = true
	}
}

// checkTranslations reports missing and unused keys, and translations whose
// template placeholders differ from the English ones
func (r *ValidationResult) checkTranslations(keys []string, translations map[string]map[string]string) {
	keySet := make(map[string]bool, len(keys))
	for _, key := range keys {
		keySet[key] = true
	}

	for _, lang := range Languages {
		trans := translations[lang]
		for _, key := range keys {
			value, ok := trans[key]
			if !ok {
				r.add("missing_translation", "Missing %s translation for key: %s", lang, key)
				continue
			}
			if lang != En {
				if want, got := placeholders(translations[En][key]), placeholders(value); want != got {
					r.add("template_mismatch", "%s translation of %s uses %q, English uses %q", lang, key, got, want)
				}
			}
		}

		unused := make([]string, 0)
		for key := range trans {
			if !keySet[key] {
				unused = append(unused, key)
			}
		}
		sort.Strings(unused)
		for _, key := range unused {
			r.add("unused_key", "Key %s exists in %s.json but not defined in keys.go", key, lang)
		}
	}
}

// placeholders returns the sorted template fields used in s
func placeholders(s string) string {
	var fields []string
	for {
		start := strings.Index(s, "{{")
		if start < 0 {
			break
		}
		end := strings.Index(s[start:], "}}")
		if end < 0 {
			break
		}
		fields = append(fields, strings.TrimSpace(s[start+2:start+end]))
		s = s[start+end+2:]
	}
	sort.Strings(fields)
	return strings.Join(fields, ",")
}

// extractMessageKeysFromFile extracts all message key constants from keys.go
func extractMessageKeysFromFile(filename string) ([]string, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filename, nil, 0)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, decl := range node.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.CONST {
			continue
		}
		for _, spec := range genDecl.Specs {
			valueSpec, ok := spec.(*ast.ValueSpec)
			if !ok || len(valueSpec.Values) == 0 {
				continue
			}
			if lit, ok := valueSpec.Values[0].(*ast.BasicLit); ok && lit.Kind == token.STRING {
				keys = append(keys, strings.Trim(lit.Value, `"`))
			}
		}
	}
	return keys, nil
}
