package validator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/pricing"
)

// Result is the outcome of validating one stored cart document. Legacy marks a
// document stored as a bare array of entries.
type Result struct {
	Snapshot   *domain.Snapshot
	Dropped    []string
	Backfilled int
	Pruned     int
	Corrupt    bool
	Legacy     bool
}

// NeedsRewrite reports whether the stored document differs from the healed snapshot
// in a way that must not resurface on the next load.
func (r Result) NeedsRewrite() bool {
	return r.Corrupt || r.Legacy || len(r.Dropped) > 0 || r.Pruned > 0
}

type rawDocument struct {
	Entries []json.RawMessage `json:"entries"`
}

type rawEntry struct {
	EntryID    any             `json:"entry_id"`
	Title      any             `json:"title"`
	Image      any             `json:"image"`
	Selected   any             `json:"selected"`
	Lines      json.RawMessage `json:"lines"`
	Quantities json.RawMessage `json:"quantities"`
}

type rawLine struct {
	ProductID   any `json:"product_id"`
	Name        any `json:"name"`
	Description any `json:"description"`
	Brand       any `json:"brand"`
	Size        any `json:"size"`
	SoldBy      any `json:"sold_by"`
	UnitPrice   any `json:"unit_price"`
	PromoPrice  any `json:"promo_price"`
	Status      any `json:"status"`
}

// Validate decodes a stored document, dropping every entry that fails the shape checks.
// An empty or unparseable document yields an empty snapshot.
func Validate(raw []byte) Result {
	res := Result{Snapshot: &domain.Snapshot{Entries: []domain.CartEntry{}}}
	if len(bytes.TrimSpace(raw)) == 0 {
		return res
	}

	var doc rawDocument
	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] == '[' {
		// older builds stored the entry list itself under the cart key
		if err := decode(trimmed, &doc.Entries); err != nil {
			res.Corrupt = true
			res.Dropped = append(res.Dropped, fmt.Sprintf("document: %v", err))
			return res
		}
		res.Legacy = true
	} else if err := decode(trimmed, &doc); err != nil {
		res.Corrupt = true
		res.Dropped = append(res.Dropped, fmt.Sprintf("document: %v", err))
		return res
	}

	seen := make(map[string]bool, len(doc.Entries))
	for i, rawE := range doc.Entries {
		entry, reason := validateEntry(rawE, &res)
		if reason == "" && seen[entry.EntryID] {
			reason = fmt.Sprintf("duplicate entry_id %q", entry.EntryID)
		}
		if reason != "" {
			res.Dropped = append(res.Dropped, fmt.Sprintf("entry %d: %s", i, reason))
			continue
		}
		seen[entry.EntryID] = true
		res.Snapshot.Entries = append(res.Snapshot.Entries, entry)
	}

	pricing.Recompute(res.Snapshot)
	return res
}

func validateEntry(raw json.RawMessage, res *Result) (domain.CartEntry, string) {
	var e rawEntry
	if err := decode(raw, &e); err != nil {
		return domain.CartEntry{}, "not an object"
	}

	id, ok := identifier(e.EntryID)
	if !ok {
		return domain.CartEntry{}, "missing entry_id"
	}
	title, ok := nonEmptyString(e.Title)
	if !ok {
		return domain.CartEntry{}, "missing title"
	}
	image, ok := nonEmptyString(e.Image)
	if !ok {
		return domain.CartEntry{}, "missing image"
	}

	var rawLines []json.RawMessage
	if len(e.Lines) == 0 || decode(e.Lines, &rawLines) != nil || rawLines == nil {
		return domain.CartEntry{}, "lines is not an array"
	}

	entry := domain.CartEntry{
		EntryID:    id,
		Title:      title,
		Image:      image,
		Selected:   e.Selected == true,
		Lines:      make([]domain.IngredientLine, 0, len(rawLines)),
		Quantities: make(map[string]int, len(rawLines)),
	}
	// entries written before selection existed default into the purchase set
	if e.Selected == nil {
		entry.Selected = true
	}

	for j, rl := range rawLines {
		line, reason := validateLine(rl)
		if reason != "" {
			return domain.CartEntry{}, fmt.Sprintf("line %d: %s", j, reason)
		}
		if entry.LineIndex(line.ProductID) >= 0 {
			return domain.CartEntry{}, fmt.Sprintf("line %d: duplicate product_id %q", j, line.ProductID)
		}
		entry.Lines = append(entry.Lines, line)
	}

	// a quantities value that is not an object is back-filled like a missing one
	var overrides map[string]any
	if len(e.Quantities) > 0 && decode(e.Quantities, &overrides) != nil {
		overrides = nil
	}
	for _, line := range entry.Lines {
		q, ok := quantity(overrides[line.ProductID])
		if !ok {
			q = 1
			res.Backfilled++
		}
		entry.Quantities[line.ProductID] = q
	}
	for pid := range overrides {
		if entry.LineIndex(pid) < 0 {
			res.Pruned++
		}
	}

	return entry, ""
}

func validateLine(raw json.RawMessage) (domain.IngredientLine, string) {
	var l rawLine
	if err := decode(raw, &l); err != nil {
		return domain.IngredientLine{}, "not an object"
	}

	pid, ok := identifier(l.ProductID)
	if !ok {
		return domain.IngredientLine{}, "missing product_id"
	}
	price, ok := l.UnitPrice.(json.Number)
	if !ok {
		return domain.IngredientLine{}, "unit_price is not numeric"
	}
	unit, err := domain.ParseCents(price.String())
	if err != nil || unit < 0 {
		return domain.IngredientLine{}, "unit_price is not a valid amount"
	}

	line := domain.IngredientLine{
		ProductID:   pid,
		Name:        text(l.Name),
		Description: text(l.Description),
		Brand:       text(l.Brand),
		Size:        text(l.Size),
		SoldBy:      text(l.SoldBy),
		UnitPrice:   unit,
		Status:      text(l.Status),
	}
	if line.Name == "" {
		line.Name = line.Description
	}
	if promo, ok := l.PromoPrice.(json.Number); ok {
		if p, err := domain.ParseCents(promo.String()); err == nil && p >= 0 {
			line.PromoPrice = &p
		}
	}
	return line, ""
}

func decode(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// identifier accepts a non-empty string or an integral number.
func identifier(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		id = strings.TrimSpace(id)
		return id, id != ""
	case json.Number:
		if n, err := id.Int64(); err == nil {
			return strconv.FormatInt(n, 10), true
		}
	}
	return "", false
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// text coerces optional display metadata. Numbers keep their literal form and
// anything else is blanked.
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// quantity accepts a non-negative integral number, including forms like 2.0.
func quantity(v any) (int, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if q, err := n.Int64(); err == nil {
		if q < 0 {
			return 0, false
		}
		return int(q), true
	}
	f, err := n.Float64()
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
