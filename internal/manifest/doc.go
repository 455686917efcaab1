// Package manifest keeps a SQLite ledger of runs, the movies each run
// processed and every asset file it wrote. The ledger is history only; no run
// reads it to decide what to do.
package manifest
