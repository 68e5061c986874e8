/*
Package loan provides keyed containers whose values are checked out as
exclusive loans, plus transactional overlays over them.

Rather than a reader/writer lock over the whole provenance graph, each key in
a store is independently lent to at most one mutator at a time. A second
concurrent lend of the same key is a programming error and panics, as does
consuming a store while loans are outstanding. This keeps mutation of
long-lived entities serialised per key without a global lock.

Two overlays defer writes until commit:

  - HashOverlay wraps a plain map index. Reads see buffered writes first,
    then the parent. Commit applies the buffered writes; rollback discards
    them.
  - LoanOverlay wraps a Store while preserving loan semantics: values lent
    through the overlay are copied into transaction-local storage on first
    touch, so the parent is untouched until commit.
*/
package loan
