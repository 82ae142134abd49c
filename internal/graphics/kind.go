package graphics

import (
	"fmt"
	"strings"
)

// Kind identifies the type of a graphics element
type Kind uint16

const (
	KindText Kind = 1 << iota
	KindPath
	KindImage
	KindShading
	KindForm
	KindContainer
	KindAnnotation
	KindPage
)

var kindNames = []struct {
	kind Kind
	name string
}{
	{KindText, "text"},
	{KindPath, "path"},
	{KindImage, "image"},
	{KindShading, "shading"},
	{KindForm, "form"},
	{KindContainer, "container"},
	{KindAnnotation, "annotation"},
	{KindPage, "page"},
}

func (k Kind) String() string {
	for _, kn := range kindNames {
		if kn.kind == k {
			return kn.name
		}
	}
	return fmt.Sprintf("Kind(%d)", uint16(k))
}

// ParseKind returns the kind with the given name
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, kn := range kindNames {
		if kn.name == name {
			return kn.kind, nil
		}
	}
	return 0, fmt.Errorf("unknown element kind: %q", name)
}

// Filter is a set of kinds. Traversal only stops on elements whose kind is in the set.
type Filter uint16

// AllKinds matches every element
const AllKinds = Filter(KindText | KindPath | KindImage | KindShading | KindForm | KindContainer | KindAnnotation | KindPage)

// Only builds a filter matching exactly the given kinds
func Only(kinds ...Kind) Filter {
	var f Filter
	for _, k := range kinds {
		f |= Filter(k)
	}
	return f
}

// Match reports whether k is in the filter
func (f Filter) Match(k Kind) bool {
	return f&Filter(k) != 0
}

func (f Filter) String() string {
	if f == AllKinds {
		return "all"
	}
	var names []string
	for _, kn := range kindNames {
		if f.Match(kn.kind) {
			names = append(names, kn.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseFilter parses a comma separated list of kind names. An empty string
// or "all" yields AllKinds.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return AllKinds, nil
	}

	var f Filter
	for _, part := range strings.Split(s, ",") {
		k, err := ParseKind(part)
		if err != nil {
			return 0, err
		}
		f |= Filter(k)
	}
	return f, nil
}
