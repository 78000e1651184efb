// Package index implements the static lookup table behind documentation
// symbol search.
//
// A Table holds search entries in the order the generator produced them and
// answers case-insensitive queries against display names:
//
//	table, err := index.New(entries)
//	if err != nil {
//	    return err // every invariant violation, aggregated
//	}
//
//	for _, entry := range table.Lookup("get") {
//	    fmt.Println(entry.DisplayName)
//	}
//
// # Ordering
//
// Entries whose display name starts with the query are returned first, then
// entries that only contain it. Within each group the original insertion
// order is kept. An empty query returns every entry in insertion order.
//
// # Immutability
//
// New copies its input and every accessor returns copies, so a Table never
// changes after construction and needs no locking.
//
// # Building
//
// Builder accumulates entries, merging occurrences that share a display name
// and assigning generator-style keys:
//
//	b := index.NewBuilder(501)
//	b.Add("GameObject", ctorA, ctorB)
//	b.Add("getModel", getModel)
//	table, err := b.Build()
//
// # JSON
//
// Table marshals to an array of [key, [displayName, [[anchor, owner], ...]]]
// tuples and unmarshals back with the same validation as New.
package index
