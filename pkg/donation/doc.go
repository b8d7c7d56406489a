// Package donation holds the filtering logic shared by every donation node:
// response normalization, status predicates, the de-duplicating cursor filter
// and the polling gate.
//
// A node invocation looks like:
//
//	if !gate.Due(cur, now) { return nil }
//	records := donation.Normalize(body)
//	matched, next := donation.Filter(records, cur, donation.Abandoned, now)
//	next = gate.Succeeded(next, now)
package donation
