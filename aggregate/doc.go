// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package aggregate implements the consistency rule between a game's regular
lists and its aggregate ("All Items") list.

# The Rule

Every item on a regular list has a matching entry on the aggregate list of
the same game and kind. Entries are keyed by case-insensitive description:

	aggregate.Key("  Iron Ingot ") == "iron ingot"

The aggregate quantity is the sum of the regular-list quantities, and the
aggregate notes are the non-empty regular-list notes joined with " -- ".

# Incremental Updates

Handlers keep the aggregate list current as regular items change:

	entry := aggregate.Add(existing, aggregate.Entry{Description: "Iron Ingot", Quantity: 3})
	entry, removed := aggregate.Update(entry, -1, "for armor", "for swords", nil)
	entry, removed = aggregate.Remove(entry, 2, "for swords")

Note removal is best-effort: a whole " -- " segment is removed when one
matches, otherwise the first substring match is cut out.

# Repair

Rebuild recomputes aggregate content from scratch and Diff reports which
descriptions disagree with it:

	want := aggregate.Rebuild(regularItems)
	bad := aggregate.Diff(currentAggregate, regularItems)

All functions are pure; storage is handled by the handlers package.
*/
package aggregate
