package zone

import "fmt"

// Change is one of Create, Update or Delete.
type Change interface {
	// Record returns the record the change applies to: the new record for
	// Create and Update, the existing one for Delete.
	Record() *Record

	fmt.Stringer
	isChange()
}

// Create adds a record that does not exist yet.
type Create struct {
	New *Record
}

func (c Create) Record() *Record { return c.New }
func (c Create) String() string  { return "Create " + c.New.String() }
func (Create) isChange()         {}

// Update replaces an existing record with a new one of the same name and type.
type Update struct {
	Existing *Record
	New      *Record
}

func (c Update) Record() *Record { return c.New }
func (c Update) String() string {
	return "Update " + c.Existing.String() + " -> " + c.New.String()
}
func (Update) isChange() {}

// Delete removes an existing record.
type Delete struct {
	Existing *Record
}

func (c Delete) Record() *Record { return c.Existing }
func (c Delete) String() string  { return "Delete " + c.Existing.String() }
func (Delete) isChange()         {}

// Plan is the set of changes converging Existing to Desired.
type Plan struct {
	Existing *Zone
	Desired  *Zone
	Changes  []Change
	// Exists reports whether the zone was present at the target when populated.
	Exists bool
}

// NewPlan diffs existing against desired. Deletes come first, then creates,
// then updates; each group is ordered by name and type.
func NewPlan(existing, desired *Zone, exists bool) *Plan {
	p := &Plan{Existing: existing, Desired: desired, Exists: exists}

	var creates, updates, deletes []Change
	for _, cur := range existing.Records() {
		want, ok := desired.Get(cur.Name, cur.Type)
		switch {
		case !ok:
			deletes = append(deletes, Delete{Existing: cur})
		case !cur.Equal(want):
			updates = append(updates, Update{Existing: cur, New: want})
		}
	}
	for _, want := range desired.Records() {
		if _, ok := existing.Get(want.Name, want.Type); !ok {
			creates = append(creates, Create{New: want})
		}
	}

	p.Changes = append(p.Changes, deletes...)
	p.Changes = append(p.Changes, creates...)
	p.Changes = append(p.Changes, updates...)
	return p
}

// Empty reports whether the plan has no changes.
func (p *Plan) Empty() bool { return len(p.Changes) == 0 }

// Counts returns the number of creates, updates and deletes in the plan.
func (p *Plan) Counts() (creates, updates, deletes int) {
	for _, c := range p.Changes {
		switch c.(type) {
		case Create:
			creates++
		case Update:
			updates++
		case Delete:
			deletes++
		}
	}
	return creates, updates, deletes
}

// Lines renders each change on its own line, in plan order.
func (p *Plan) Lines() []string {
	out := make([]string, 0, len(p.Changes))
	for _, c := range p.Changes {
		out = append(out, c.String())
	}
	return out
}
