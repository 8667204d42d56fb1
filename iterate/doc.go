// Package iterate drives bounded retry loops: it repeatedly invokes a
// caller-supplied unit of work until it succeeds, hits a permanent error,
// exhausts its attempt budget, is vetoed by a custom predicate, or is
// cancelled.
//
// Failed attempts are classified (see the classify subpackage) and separated
// by capped exponential backoff with jitter (see the backoff subpackage).
// Every attempt is recorded, so a finished run can be audited record by
// record.
//
// A Controller holds exactly one history/counter pair and must not run
// overlapping Execute calls; construct one controller per call site instead
// of sharing an instance. For one-shot use, Run builds a throwaway controller
// and returns the value or the final error directly.
package iterate
