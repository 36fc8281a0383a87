// Package entity groups edit records by entity name into time-bounded cells.
package entity

import (
	"strings"
	"sync"
)

// Entity is a named construct such as "org.example.Map<K,V>#put", parsed
// into package, class and method, and the cells recorded for it.
type Entity struct {
	Package    string
	ClassName  string
	MethodName string

	name  string
	cells []*Cell

	largestOnce sync.Once
	largest     int
}

// New parses a qualified name of the form package.Class<generics>#method.
// Generic arguments are kept on ClassName as display text.
func New(name string) *Entity {
	head, method, _ := strings.Cut(name, "#")
	base, generics, hasGenerics := strings.Cut(head, "<")

	e := &Entity{MethodName: method, name: name}

	if idx := strings.LastIndex(base, "."); idx >= 0 {
		e.Package = base[:idx]
		e.ClassName = base[idx+1:]
	} else {
		e.ClassName = base
	}

	if hasGenerics {
		e.ClassName += "<" + generics
		if !strings.HasSuffix(generics, ">") {
			e.ClassName += ">"
		}
	}

	return e
}

// ShortName is the class name, followed by #method when there is one.
func (e *Entity) ShortName() string {
	if e.MethodName != "" {
		return e.ClassName + "#" + e.MethodName
	}

	return e.ClassName
}

// Name is the fully qualified name exactly as recorded in the dataset.
func (e *Entity) Name() string { return e.name }

// String implements fmt.Stringer.
func (e *Entity) String() string { return e.Name() }

// Cells returns the cells in chronological order.
func (e *Entity) Cells() []*Cell { return e.cells }

// Observations returns the number of records across all cells.
func (e *Entity) Observations() int {
	n := 0
	for _, c := range e.cells {
		n += c.Observations()
	}

	return n
}

// LargestCell returns the observation count of the fullest cell. The value
// is computed on first use; cells must not change afterwards.
func (e *Entity) LargestCell() int {
	e.largestOnce.Do(func() {
		for _, c := range e.cells {
			e.largest = max(e.largest, c.Observations())
		}
	})

	return e.largest
}

func (e *Entity) addCell(c *Cell) {
	e.cells = append(e.cells, c)
}

func (e *Entity) lastCell() *Cell {
	if len(e.cells) == 0 {
		return nil
	}

	return e.cells[len(e.cells)-1]
}
