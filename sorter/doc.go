// Package sorter picks one canonical child out of competing relations.
//
// Some registry relations hold several candidates where only one is
// correct for export, for example multiple links to a neighbourhood of
// which only the most recent applies. Select boxes the entity into every
// combination of one child per multi-valued relation and then eliminates
// candidates sorter by sorter:
//
//	best := sorter.Select(e,
//		sorter.Latest("ligtInBuurt.beginGeldigheid"),
//		sorter.NonEmpty("ligtInBuurt.code"),
//	)
//
// After each sorter only the candidates that tie for best survive. The
// first survivor is returned, so the result is deterministic for a given
// input order.
package sorter
