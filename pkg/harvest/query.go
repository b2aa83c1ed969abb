package harvest

import (
	"github.com/beevik/etree"
)

// Tree lookups match elements by resolved namespace URI and local name. The
// prefix used in the document is irrelevant, and an element in a different
// (or no) namespace never matches.

func matches(el *etree.Element, ns, local string) bool {
	return el.Tag == local && el.NamespaceURI() == ns
}

// findChildren returns the direct children of el named {ns}local.
func findChildren(el *etree.Element, ns, local string) []*etree.Element {
	if el == nil {
		return nil
	}
	var found []*etree.Element
	for _, c := range el.ChildElements() {
		if matches(c, ns, local) {
			found = append(found, c)
		}
	}
	return found
}

// findChild returns the first direct child of el named {ns}local, or nil.
func findChild(el *etree.Element, ns, local string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, c := range el.ChildElements() {
		if matches(c, ns, local) {
			return c
		}
	}
	return nil
}

// findPath follows path below el, one child step per name, and returns every
// element reached, in document order.
func findPath(el *etree.Element, ns string, path ...string) []*etree.Element {
	if el == nil {
		return nil
	}
	current := []*etree.Element{el}
	for _, step := range path {
		var next []*etree.Element
		for _, c := range current {
			next = append(next, findChildren(c, ns, step)...)
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}
