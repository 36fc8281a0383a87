package entity

import (
	"time"

	"github.com/Sumatoshi-tech/typedna/pkg/edit"
)

// Aggregator routes records to the cells of a fixed set of entities.
// Records must arrive in non-decreasing date order per entity.
type Aggregator struct {
	entities []*Entity
	byName   map[string]*Entity
}

// NewAggregator creates an aggregator tracking the given names in order.
func NewAggregator(names []string) *Aggregator {
	agg := &Aggregator{
		entities: make([]*Entity, 0, len(names)),
		byName:   make(map[string]*Entity, len(names)),
	}

	for _, name := range names {
		if _, ok := agg.byName[name]; ok {
			continue
		}

		e := New(name)
		agg.entities = append(agg.entities, e)
		agg.byName[name] = e
	}

	return agg
}

// Lookup returns the entity tracked under name.
func (a *Aggregator) Lookup(name string) (*Entity, bool) {
	e, ok := a.byName[name]

	return e, ok
}

// Entities returns the tracked entities in construction order.
func (a *Aggregator) Entities() []*Entity { return a.entities }

// AddEntry appends r to its entity's last cell, first opening a new cell
// [start, end] when the last one does not cover r. It reports false without
// error when r's entity is not tracked.
func (a *Aggregator) AddEntry(r *edit.Record, start, end time.Time) (bool, error) {
	e, ok := a.byName[r.Type]
	if !ok {
		return false, nil
	}

	last := e.lastCell()
	if last == nil || !last.Accepts(r) {
		last = NewCell(start, end, e.Name())
		e.addCell(last)
	}

	err := last.Add(r)
	if err != nil {
		return false, err
	}

	return true, nil
}
