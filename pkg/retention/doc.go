// Package retention applies a time-based retention policy to paged
// collections of social media records.
//
// The Engine walks a Collection page by page and, for each record, decides
// whether it is kept or deleted. Checks run in a fixed order:
//
//  1. records without a usable timestamp are logged and left alone
//  2. records newer than the cutoff are left alone
//  3. reposts are skipped unless the policy deletes them
//  4. the pinned record is skipped unless the policy deletes it
//  5. records on the keep list are skipped
//  6. in dry-run mode the record is counted as deleted
//  7. otherwise the record is deleted, pacing between attempts
//
// A rate-limited deletion ends the pass early without error so that the
// remaining collections still run. A failed page fetch fails the pass.
package retention
