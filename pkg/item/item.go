// Package item models the item representation returned by the upstream
// pricing API and classifies it into single items and item-group bundles.
package item

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// GroupTypeName is the upstream item type name that marks a composite item.
// Matching is case-insensitive.
const GroupTypeName = "item group"

// Item is the upstream representation of one priced item.
// It is treated as immutable once fetched; a re-fetch replaces it.
type Item struct {
	ID          int64       `json:"id"`
	ItemNumber  string      `json:"itemNumber"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Price       Number      `json:"price"`
	ItemType    *Type       `json:"itemType,omitempty"`
	GroupItems  []GroupItem `json:"groupItems,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler. The id may arrive as a number
// or a numeric string, and a numeric itemNumber is kept as its text.
func (it *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	aux := struct {
		*plain
		ID         json.RawMessage `json:"id"`
		ItemNumber json.RawMessage `json:"itemNumber"`
	}{plain: (*plain)(it)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	id, err := decodeID(aux.ID)
	if err != nil {
		return err
	}
	it.ID = id
	it.ItemNumber = decodeText(aux.ItemNumber)
	return nil
}

func decodeID(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("item id: %w", err)
	}

	var text string
	switch x := v.(type) {
	case json.Number:
		text = x.String()
	case string:
		text = strings.TrimSpace(x)
	default:
		return 0, fmt.Errorf("item id: unsupported value %s", raw)
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("item id: %w", err)
	}
	return id, nil
}

func decodeText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return ""
	}
}

// Type carries the upstream item type.
type Type struct {
	Name string `json:"name"`
}

// Ref is the short form of an item referenced from a group.
type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GroupItem is one component line of an item group.
type GroupItem struct {
	Item  Ref    `json:"item"`
	Qty   Number `json:"qty"`
	Price Number `json:"price"`
}

// TypeName returns the item type name, or "" when the upstream omitted it.
func (it *Item) TypeName() string {
	if it == nil || it.ItemType == nil {
		return ""
	}
	return it.ItemType.Name
}

// IsGroup reports whether the item is typed as an item group.
func (it *Item) IsGroup() bool {
	return strings.EqualFold(strings.TrimSpace(it.TypeName()), GroupTypeName)
}

// Variant discriminates the item into Single or Bundle.
// An item group without components is priced as a Single.
func (it *Item) Variant() Variant {
	if it.IsGroup() && len(it.GroupItems) > 0 {
		components := make([]GroupItem, len(it.GroupItems))
		copy(components, it.GroupItems)
		return Bundle{Components: components}
	}
	return Single{Price: it.Price.Float64()}
}

// WorkDescription returns the description, falling back to the name.
func (it *Item) WorkDescription() string {
	if d := strings.TrimSpace(it.Description); d != "" {
		return it.Description
	}
	return it.Name
}

// Variant is either Single or Bundle.
type Variant interface {
	variant()
}

// Single is a plain item priced by its own price field.
type Single struct {
	Price float64
}

// Bundle is an item group priced as the sum of its weighted components,
// in upstream order.
type Bundle struct {
	Components []GroupItem
}

func (Single) variant() {}
func (Bundle) variant() {}
