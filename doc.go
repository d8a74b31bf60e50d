// Package cashbook keeps a personal bank ledger consistent as it changes.
//
// The Store is the only place where accounts, categories, payment modes,
// transactions, recurring templates and named filters are mutated. Around it,
// two derived structures are maintained incrementally rather than recomputed:
//
//   - every Account carries a Timeline, the balance of the account as a step
//     function of time, merged so that two adjacent intervals never hold the
//     same balance within the Currency tolerance;
//   - a View is the sorted subset of the transactions passing a Filter, with
//     the Timeline of the accounts the filter allows.
//
// Stores, filters and views notify their listeners synchronously. A View
// reacts to the events of its Store and Filter and always holds what a full
// re-filter would compute.
//
// Snapshots are written and read as JSONL (EncodeStore, DecodeStore) and
// named filters as YAML (EncodeFilters, DecodeFilters). The sqlitedb package
// stores snapshots in SQLite, the renderer package formats reports as
// markdown, and the cbk command-line tool ties them together.
package cashbook
