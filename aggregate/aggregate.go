// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package aggregate

import (
	"errors"
	"math"
	"slices"
	"strings"
)

// NotesSeparator joins the notes of items combined into one entry
const NotesSeparator = " -- "

// MaxQuantity is the largest quantity an item or aggregate entry can hold.
// The quantity column is a 32-bit INTEGER on PostgreSQL.
const MaxQuantity = math.MaxInt32

// ErrQuantityTooLarge is returned when a sum of quantities exceeds MaxQuantity
var ErrQuantityTooLarge = errors.New("quantity must be less than or equal to 2147483647")

// Entry is the part of a list item that the aggregate list tracks
type Entry struct {
	Description string
	Quantity    int
	Notes       string
	UnitWeight  *float64
}

// Key returns the case-insensitive matching key for a description
func Key(description string) string {
	return strings.ToLower(strings.TrimSpace(description))
}

// CombineNotes joins the non-empty parts with NotesSeparator
func CombineNotes(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, NotesSeparator)
}

// RemoveNotes takes one occurrence of removed out of existing. A whole
// segment match is preferred; otherwise the first substring match is cut.
// Leftover separators are cleaned up. If removed is not found, existing is
// returned unchanged apart from separator cleanup.
func RemoveNotes(existing, removed string) string {
	removed = strings.TrimSpace(removed)
	if removed == "" {
		return CombineNotes(splitNotes(existing)...)
	}

	segments := splitNotes(existing)
	for i, s := range segments {
		if s == removed {
			segments = append(segments[:i], segments[i+1:]...)
			return CombineNotes(segments...)
		}
	}

	if idx := strings.Index(existing, removed); idx >= 0 {
		existing = existing[:idx] + existing[idx+len(removed):]
	}
	return CombineNotes(splitNotes(existing)...)
}

// ReplaceNotes swaps one contribution for another
func ReplaceNotes(existing, oldNotes, newNotes string) string {
	if strings.TrimSpace(oldNotes) == strings.TrimSpace(newNotes) {
		return CombineNotes(splitNotes(existing)...)
	}
	return CombineNotes(RemoveNotes(existing, oldNotes), newNotes)
}

func splitNotes(notes string) []string {
	parts := strings.Split(notes, NotesSeparator)
	for i, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimSpace(strings.TrimPrefix(p, "--"))
		p = strings.TrimSpace(strings.TrimSuffix(p, "--"))
		parts[i] = p
	}
	return parts
}

// Add folds an item added to a regular list into its aggregate entry.
// A nil agg means no entry exists yet; the result is then a copy of in.
func Add(agg *Entry, in Entry) (Entry, error) {
	if agg == nil {
		if in.Quantity > MaxQuantity {
			return Entry{}, ErrQuantityTooLarge
		}
		return merge(nil, in), nil
	}
	if _, err := addQuantity(agg.Quantity, in.Quantity); err != nil {
		return Entry{}, err
	}
	return merge(agg, in), nil
}

// merge is Add without the bound check
func merge(agg *Entry, in Entry) Entry {
	if agg == nil {
		return Entry{
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			Notes:       CombineNotes(in.Notes),
			UnitWeight:  in.UnitWeight,
		}
	}

	out := *agg
	out.Quantity += in.Quantity
	out.Notes = CombineNotes(agg.Notes, in.Notes)
	if in.UnitWeight != nil {
		out.UnitWeight = in.UnitWeight
	}
	return out
}

// addQuantity returns have+delta, or ErrQuantityTooLarge past MaxQuantity
func addQuantity(have, delta int) (int, error) {
	if delta > 0 && have > MaxQuantity-delta {
		return 0, ErrQuantityTooLarge
	}
	return have + delta, nil
}

// Update applies an edit of a regular-list item to its aggregate entry.
// removed is true when the resulting quantity is no longer positive.
func Update(agg Entry, deltaQuantity int, oldNotes, newNotes string, unitWeight *float64) (out Entry, removed bool, err error) {
	out = agg
	if out.Quantity, err = addQuantity(agg.Quantity, deltaQuantity); err != nil {
		return agg, false, err
	}
	out.Notes = ReplaceNotes(agg.Notes, oldNotes, newNotes)
	if unitWeight != nil {
		out.UnitWeight = unitWeight
	}
	return out, out.Quantity <= 0, nil
}

// Remove takes a deleted regular-list item out of its aggregate entry.
// removed is true when the aggregate entry should be deleted.
func Remove(agg Entry, quantity int, notes string) (out Entry, removed bool) {
	out = agg
	out.Quantity -= quantity
	if out.Quantity <= 0 {
		return out, true
	}
	out.Notes = RemoveNotes(agg.Notes, notes)
	return out, false
}

// Rebuild computes the aggregate list content from the items of every
// regular list. Entries keep the order and spelling of the first item seen
// for each description; the last non-nil unit weight wins. Quantities are
// not bounded here; callers check them against MaxQuantity before storing.
func Rebuild(items []Entry) []Entry {
	index := make(map[string]int, len(items))
	out := make([]Entry, 0, len(items))

	for _, item := range items {
		key := Key(item.Description)
		if i, ok := index[key]; ok {
			out[i] = merge(&out[i], item)
			continue
		}
		index[key] = len(out)
		out = append(out, merge(nil, item))
	}
	return out
}

// Diff reports the descriptions whose aggregate entry does not match the
// entry Rebuild would produce, including entries missing on either side.
// Notes are compared as a multiset of segments since their order depends on
// the edit history.
func Diff(current, items []Entry) []string {
	want := Rebuild(items)
	have := make(map[string]Entry, len(current))
	for _, e := range current {
		have[Key(e.Description)] = e
	}

	var mismatched []string
	seen := make(map[string]bool, len(want))
	for _, w := range want {
		key := Key(w.Description)
		seen[key] = true
		h, ok := have[key]
		if !ok || h.Quantity != w.Quantity || !sameNotes(h.Notes, w.Notes) {
			mismatched = append(mismatched, w.Description)
		}
	}
	for _, e := range current {
		if !seen[Key(e.Description)] {
			mismatched = append(mismatched, e.Description)
		}
	}
	return mismatched
}

func sameNotes(a, b string) bool {
	as := splitNotes(CombineNotes(splitNotes(a)...))
	bs := splitNotes(CombineNotes(splitNotes(b)...))
	slices.Sort(as)
	slices.Sort(bs)
	return slices.Equal(as, bs)
}
