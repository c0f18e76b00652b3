// Package history expands temporally versioned entities into one row per
// validity timeslot.
//
// An entity carries its own validity interval (beginGeldigheid,
// eindGeldigheid) and may reference other entities that each carry their
// own interval. The boundaries of all intervals cut the entity's span into
// minimal timeslots; every slot becomes a row holding, per reference, the
// one child whose interval contains the slot.
//
// Given
//
//	{beginGeldigheid: "2010-01-01", eindGeldigheid: "",
//	 ligtInBuurt: [{beginGeldigheid: "2012-01-01", eindGeldigheid: ""}]}
//
// the expander yields two rows: 2010-01-01..2012-01-01 without a buurt
// and 2012-01-01.. with it. Open ends render as the empty string.
package history
