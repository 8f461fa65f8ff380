package opcore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/sets"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// ValidationResult is either valid, possibly with warnings that are logged
// but do not block, or invalid with the reason reconciliation must stop.
type ValidationResult struct {
	Warnings []string
	Invalid  bool
	Reason   string
}

func Valid(warnings ...string) ValidationResult {
	return ValidationResult{Warnings: warnings}
}

func Invalid(reason string, warnings ...string) ValidationResult {
	return ValidationResult{Warnings: warnings, Invalid: true, Reason: reason}
}

func (r ValidationResult) IsValid() bool {
	return !r.Invalid
}

// Validator inspects an existing resource before any mutating work is done.
type Validator[T client.Object] interface {
	Validate(resource T) ValidationResult
}

type ValidatorFunc[T client.Object] func(resource T) ValidationResult

func (f ValidatorFunc[T]) Validate(resource T) ValidationResult {
	return f(resource)
}

// AlwaysValid accepts every resource without warnings.
func AlwaysValid[T client.Object]() Validator[T] {
	return ValidatorFunc[T](func(T) ValidationResult { return Valid() })
}

// ValidationVisitor walks the configuration tree of a resource. Deprecated
// fields and unknown properties produce warnings; mutually exclusive fields
// and failing checks make the resource invalid.
//
// Paths are dot separated from the object root, e.g. "spec.kafka.tlsSidecar",
// and the root itself is "".
// Elements of a list share the path of the list itself.
type ValidationVisitor[T client.Object] struct {
	deprecated map[string]string
	known      map[string]sets.Set[string]
	exclusive  [][2]string
	checks     []namedCheck[T]
}

var _ Validator[client.Object] = &ValidationVisitor[client.Object]{}

type namedCheck[T client.Object] struct {
	name  string
	check func(resource T) error
}

type ValidationVisitorBuilder[T client.Object] struct {
	visitor *ValidationVisitor[T]
}

func NewValidationVisitorFor[T client.Object]() *ValidationVisitorBuilder[T] {
	return &ValidationVisitorBuilder[T]{
		visitor: &ValidationVisitor[T]{
			deprecated: make(map[string]string),
			known:      make(map[string]sets.Set[string]),
		},
	}
}

// WithDeprecatedField warns whenever path is set. message usually names the replacement.
func (b *ValidationVisitorBuilder[T]) WithDeprecatedField(path, message string) *ValidationVisitorBuilder[T] {
	b.visitor.deprecated[path] = message
	return b
}

// WithKnownFields declares the complete set of properties allowed directly
// under parent. Any other property found there is reported as unknown.
func (b *ValidationVisitorBuilder[T]) WithKnownFields(parent string, fields ...string) *ValidationVisitorBuilder[T] {
	set, ok := b.visitor.known[parent]
	if !ok {
		set = sets.New[string]()
		b.visitor.known[parent] = set
	}
	set.Insert(fields...)
	return b
}

// WithMutuallyExclusive rejects resources where both paths are set.
func (b *ValidationVisitorBuilder[T]) WithMutuallyExclusive(first, second string) *ValidationVisitorBuilder[T] {
	b.visitor.exclusive = append(b.visitor.exclusive, [2]string{first, second})
	return b
}

// WithCheck rejects resources for which check returns an error.
func (b *ValidationVisitorBuilder[T]) WithCheck(name string, check func(resource T) error) *ValidationVisitorBuilder[T] {
	b.visitor.checks = append(b.visitor.checks, namedCheck[T]{name: name, check: check})
	return b
}

func (b *ValidationVisitorBuilder[T]) Build() *ValidationVisitor[T] {
	return b.visitor
}

func (v *ValidationVisitor[T]) Validate(resource T) ValidationResult {
	content, err := toUnstructured(resource)
	if err != nil {
		return Invalid(errors.Wrap(err, "failed to read resource configuration").Error())
	}

	var warnings []string
	v.visit(nil, content, &warnings)
	sort.Strings(warnings)

	for _, pair := range v.exclusive {
		if hasPath(content, pair[0]) && hasPath(content, pair[1]) {
			return Invalid(fmt.Sprintf("%s and %s cannot be set at the same time", pair[0], pair[1]), warnings...)
		}
	}

	for _, c := range v.checks {
		if err := c.check(resource); err != nil {
			return Invalid(errors.Wrap(err, c.name).Error(), warnings...)
		}
	}

	return Valid(warnings...)
}

func (v *ValidationVisitor[T]) visit(path []string, node any, warnings *[]string) {
	switch typed := node.(type) {
	case map[string]any:
		parent := strings.Join(path, ".")
		known, checkKnown := v.known[parent]
		for key, child := range typed {
			childPath := append(append([]string{}, path...), key)
			joined := strings.Join(childPath, ".")

			if checkKnown && !known.Has(key) {
				*warnings = append(*warnings, fmt.Sprintf("Contains object at path %s with an unknown property: %s", displayPath(parent), key))
			}
			if message, ok := v.deprecated[joined]; ok {
				*warnings = append(*warnings, fmt.Sprintf("Contains deprecated property %s: %s", joined, message))
			}

			v.visit(childPath, child, warnings)
		}
	case []any:
		for _, item := range typed {
			v.visit(path, item, warnings)
		}
	}
}

func displayPath(path string) string {
	if path == "" {
		return "."
	}
	return path
}

func toUnstructured(obj client.Object) (map[string]any, error) {
	if u, ok := obj.(*unstructured.Unstructured); ok {
		return u.UnstructuredContent(), nil
	}
	return runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
}

func hasPath(content map[string]any, path string) bool {
	value, found, err := unstructured.NestedFieldNoCopy(content, strings.Split(path, ".")...)
	return err == nil && found && value != nil
}
