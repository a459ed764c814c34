// Package pagination walks paginated API result sets.
//
// The API offers two paging schemes: opaque cursors (preferred, stable under
// concurrent writes) and numeric pages. Pager wraps either scheme behind a
// lazy item stream, and Gather fetches a whole result set in parallel with
// bounded concurrency.
//
// Example usage:
//
//	pager := pagination.New(fetchWorks, pagination.DefaultConfig())
//	for {
//		item, err := pager.Next(ctx)
//		if errors.Is(err, pagination.ErrDone) {
//			break
//		}
//		...
//	}
//
// Gather first probes the backend for the total count (per_page=1), plans
// the page fetches, and runs them concurrently, concatenating results in
// page order. It returns the same ordered items as sequential iteration.
package pagination
