package history

import (
	"context"
	"slices"

	"github.com/kbukum/gobexport/entity"
	"github.com/kbukum/gobexport/logger"
	"github.com/kbukum/gobexport/pipeline"
)

// Default validity fields of registry entities.
const (
	DefaultBegin = "beginGeldigheid"
	DefaultEnd   = "eindGeldigheid"
)

// Expander turns one versioned entity into one row per timeslot.
type Expander struct {
	// Begin and End name the validity fields of the entity and of every
	// referenced child.
	Begin string
	End   string
	// References are the relation fields expanded per slot. When empty,
	// every relation whose children carry a Begin field is used.
	References []string
	Logger     *logger.Logger
}

// New returns an expander over the default validity fields.
func New(references ...string) *Expander {
	return &Expander{Begin: DefaultBegin, End: DefaultEnd, References: references}
}

type interval struct {
	start, end Moment
}

func (x *Expander) fields() (string, string) {
	begin, end := x.Begin, x.End
	if begin == "" {
		begin = DefaultBegin
	}
	if end == "" {
		end = DefaultEnd
	}
	return begin, end
}

// interval reads the validity of e. A missing start is reported by
// hasStart=false and defaults to BeginOfTime, so it adds no slot boundary
// but the reference still contains every slot up to its end. A missing
// end is EndOfTime.
func (x *Expander) interval(e *entity.Entity) (iv interval, hasStart bool, err error) {
	beginField, endField := x.fields()
	begin, _ := e.Get(beginField)
	start, hasStart, err := ParseMoment(beginField, begin)
	if err != nil {
		return interval{}, false, err
	}
	if !hasStart {
		start = Moment{Time: BeginOfTime}
	}
	endVal, _ := e.Get(endField)
	end, ok, err := ParseMoment(endField, endVal)
	if err != nil {
		return interval{}, false, err
	}
	if !ok {
		end = Moment{Time: EndOfTime}
	}
	return interval{start: start, end: end}, hasStart, nil
}

func (x *Expander) references(e *entity.Entity) []string {
	if len(x.References) > 0 {
		return x.References
	}
	beginField, _ := x.fields()
	var refs []string
	e.Range(func(k string, v any) bool {
		children, ok := v.([]*entity.Entity)
		if !ok {
			return true
		}
		for _, c := range children {
			if _, ok := c.Get(beginField); ok {
				refs = append(refs, k)
				break
			}
		}
		return true
	})
	return refs
}

// Slots returns the timeslots of e in ascending order, restricted to the
// entity's own validity span.
func (x *Expander) Slots(e *entity.Entity) ([]TimeSlot, error) {
	slots, _, err := x.slots(e, x.references(e))
	return slots, err
}

func (x *Expander) slots(e *entity.Entity, refs []string) ([]TimeSlot, map[*entity.Entity]interval, error) {
	own, _, err := x.interval(e)
	if err != nil {
		return nil, nil, err
	}
	bounds := []Moment{own.start, own.end}
	ivs := make(map[*entity.Entity]interval)
	for _, name := range refs {
		v, _ := e.Get(name)
		children, _ := v.([]*entity.Entity)
		for _, c := range children {
			if c == nil {
				continue
			}
			iv, hasStart, err := x.interval(c)
			if err != nil {
				return nil, nil, err
			}
			ivs[c] = iv
			if hasStart {
				bounds = append(bounds, iv.start)
			}
			bounds = append(bounds, iv.end)
		}
	}

	slices.SortStableFunc(bounds, func(a, b Moment) int { return a.Time.Compare(b.Time) })
	bounds = slices.CompactFunc(bounds, func(a, b Moment) bool { return a.Time.Equal(b.Time) })

	slots := make([]TimeSlot, 0, len(bounds))
	var dropped []string
	for i := 0; i+1 < len(bounds); i++ {
		slot := TimeSlot{Start: bounds[i], End: bounds[i+1]}
		if !slot.within(own.start, own.end) {
			dropped = append(dropped, slot.String())
			continue
		}
		slots = append(slots, slot)
	}
	if len(dropped) > 0 {
		x.log().Warn("timeslots outside validity dropped", logger.Fields(
			"validity", TimeSlot{Start: own.start, End: own.end}.String(),
			"dropped", dropped,
		))
	}
	return slots, ivs, nil
}

// Expand returns one row per timeslot of e. Each row copies the fields of
// e, carries the slot bounds in the validity fields and binds each
// reference to the single child whose interval contains the slot, or nil.
func (x *Expander) Expand(e *entity.Entity) ([]*entity.Entity, error) {
	if e == nil {
		return nil, nil
	}
	refs := x.references(e)
	slots, ivs, err := x.slots(e, refs)
	if err != nil {
		return nil, err
	}

	beginField, endField := x.fields()
	rows := make([]*entity.Entity, 0, len(slots))
	for _, slot := range slots {
		row := entity.New()
		e.Range(func(k string, v any) bool {
			switch {
			case k == beginField:
				v = slot.Start.String()
			case k == endField:
				v = slot.End.String()
			case slices.Contains(refs, k):
				v = x.containing(v, slot, ivs)
			}
			row.Set(k, v)
			return true
		})
		if _, ok := row.Get(beginField); !ok {
			row.Set(beginField, slot.Start.String())
		}
		if _, ok := row.Get(endField); !ok {
			row.Set(endField, slot.End.String())
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (x *Expander) containing(v any, slot TimeSlot, ivs map[*entity.Entity]interval) any {
	children, _ := v.([]*entity.Entity)
	for _, c := range children {
		iv, ok := ivs[c]
		if ok && slot.within(iv.start, iv.end) {
			return []*entity.Entity{c}
		}
	}
	return nil
}

// Iterator expands e for use with pipeline.FlatMap.
func (x *Expander) Iterator(_ context.Context, e *entity.Entity) (pipeline.Iterator[*entity.Entity], error) {
	rows, err := x.Expand(e)
	if err != nil {
		return nil, err
	}
	return pipeline.Slice(rows), nil
}

// Pipeline expands every entity of p.
func (x *Expander) Pipeline(p *pipeline.Pipeline[*entity.Entity]) *pipeline.Pipeline[*entity.Entity] {
	return pipeline.FlatMap(p, x.Iterator)
}

func (x *Expander) log() *logger.Logger {
	if x.Logger == nil {
		return logger.NewNop()
	}
	return x.Logger
}
