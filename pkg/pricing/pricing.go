// Package pricing computes quote totals for upstream items, including
// item-group bundles, and applies the tiered "round up nice" policy.
//
// Pricing is pure and never fails. Results are recomputed on every request
// and are never cached, so a pricing rule change applies to cached items
// immediately.
package pricing

import (
	"math"

	"github.com/Sternrassler/item-quote-client/pkg/item"
)

// Kind tells whether a total came from a single item or a bundle.
type Kind string

const (
	// KindSingle is a plain item priced by its own price field.
	KindSingle Kind = "SINGLE"

	// KindBundle is an item group priced as the sum of its components.
	KindBundle Kind = "BUNDLE"
)

// Component is one line of a bundle breakdown.
type Component struct {
	ItemID    int64   `json:"itemId"`
	Name      string  `json:"name"`
	Qty       float64 `json:"qty"`
	UnitPrice float64 `json:"unitPrice"`
	LineTotal float64 `json:"lineTotal"`
}

// Result is the derived pricing of one item.
type Result struct {
	RawTotal     float64     `json:"rawTotal"`
	RoundedTotal float64     `json:"roundedTotal"`
	Kind         Kind        `json:"kind"`
	Components   []Component `json:"components"`
}

// Price computes the raw and rounded totals for it.
// A nil item prices as an empty Single.
func Price(it *item.Item) Result {
	if it == nil {
		return Result{Kind: KindSingle, Components: []Component{}}
	}

	var res Result
	switch v := it.Variant().(type) {
	case item.Bundle:
		res.Kind = KindBundle
		res.Components = make([]Component, 0, len(v.Components))
		for _, gi := range v.Components {
			qty := gi.Qty.Float64()
			unit := gi.Price.Float64()
			line := finite(qty * unit)
			res.Components = append(res.Components, Component{
				ItemID:    gi.Item.ID,
				Name:      gi.Item.Name,
				Qty:       qty,
				UnitPrice: unit,
				LineTotal: line,
			})
			res.RawTotal += line
		}
		res.RawTotal = finite(res.RawTotal)
	case item.Single:
		res.Kind = KindSingle
		res.Components = []Component{}
		res.RawTotal = finite(v.Price)
	}

	res.RoundedTotal = RoundUpNice(res.RawTotal)
	return res
}

// Step returns the rounding step for a positive total:
//
//	[0,10)      -> 1
//	[10,100)    -> 5
//	[100,500]   -> 20
//	(500,1000]  -> 50
//	(1000,inf)  -> 100
func Step(total float64) float64 {
	switch {
	case total < 10:
		return 1
	case total < 100:
		return 5
	case total <= 500:
		return 20
	case total <= 1000:
		return 50
	default:
		return 100
	}
}

// RoundUpNice rounds total up to the next multiple of its tier step.
// Totals at or below zero round to 0.
func RoundUpNice(total float64) float64 {
	total = finite(total)
	if total <= 0 {
		return 0
	}
	step := Step(total)
	return math.Ceil(total/step) * step
}

func finite(f float64) float64 {
	return item.Coerce(f)
}
