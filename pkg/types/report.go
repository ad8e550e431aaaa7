package types

// Section keys of the report file.
const (
	SectionSelects = "selects"
	SectionJoins   = "joins"
	SectionIDs     = "ids"
)

// Report is the terminal artifact of a run. Every latency is a mean in
// seconds. A nil sequence means the measurement was disabled for the run.
type Report struct {
	Selects SelectSection `json:"selects"`
	Joins   JoinSection   `json:"joins"`
	IDs     *IDSection    `json:"ids"`
}

// SelectSection holds point-lookup latencies per entity category.
type SelectSection struct {
	StrPlain   []float64 `json:"str_plain"`
	StrNdx     []float64 `json:"str_ndx"`
	IntPlain   []float64 `json:"int_plain"`
	IntNdx     []float64 `json:"int_ndx"`
	PointPlain []float64 `json:"point_plain"`
	PointNdx   []float64 `json:"point_ndx"`
	PolyPlain  []float64 `json:"poly_plain"`
	PolyNdx    []float64 `json:"poly_ndx"`
}

// JoinSection holds self-join latencies per entity category, plus the
// point-in-polygon cross join.
type JoinSection struct {
	StrPlain       []float64 `json:"str_plain"`
	StrNdx         []float64 `json:"str_ndx"`
	IntPlain       []float64 `json:"int_plain"`
	IntNdx         []float64 `json:"int_ndx"`
	PointPlain     []float64 `json:"point_plain"`
	PointNdx       []float64 `json:"point_ndx"`
	PolyPlain      []float64 `json:"poly_plain"`
	PolyNdx        []float64 `json:"poly_ndx"`
	PointPolyPlain []float64 `json:"point_poly_plain"`
	PointPolyNdx   []float64 `json:"point_poly_ndx"`
}

// IDSection holds identifier lookup latencies per key representation.
type IDSection struct {
	Integer []float64 `json:"integer"`
	UUID    []float64 `json:"uuid"`
	Binary  []float64 `json:"binary"`
	Char    []float64 `json:"char"`
}

// Field is one leaf sequence of the report.
type Field struct {
	Section string
	Key     string
	Values  []float64
}

// Fields returns every leaf of the report in file order, including nil ones.
func (r *Report) Fields() []Field {
	s, j := &r.Selects, &r.Joins
	fields := []Field{
		{SectionSelects, "str_plain", s.StrPlain},
		{SectionSelects, "str_ndx", s.StrNdx},
		{SectionSelects, "int_plain", s.IntPlain},
		{SectionSelects, "int_ndx", s.IntNdx},
		{SectionSelects, "point_plain", s.PointPlain},
		{SectionSelects, "point_ndx", s.PointNdx},
		{SectionSelects, "poly_plain", s.PolyPlain},
		{SectionSelects, "poly_ndx", s.PolyNdx},
		{SectionJoins, "str_plain", j.StrPlain},
		{SectionJoins, "str_ndx", j.StrNdx},
		{SectionJoins, "int_plain", j.IntPlain},
		{SectionJoins, "int_ndx", j.IntNdx},
		{SectionJoins, "point_plain", j.PointPlain},
		{SectionJoins, "point_ndx", j.PointNdx},
		{SectionJoins, "poly_plain", j.PolyPlain},
		{SectionJoins, "poly_ndx", j.PolyNdx},
		{SectionJoins, "point_poly_plain", j.PointPolyPlain},
		{SectionJoins, "point_poly_ndx", j.PointPolyNdx},
	}
	if r.IDs != nil {
		fields = append(fields,
			Field{SectionIDs, "integer", r.IDs.Integer},
			Field{SectionIDs, "uuid", r.IDs.UUID},
			Field{SectionIDs, "binary", r.IDs.Binary},
			Field{SectionIDs, "char", r.IDs.Char},
		)
	}
	return fields
}

// Populated returns only the non-nil leaves, in file order.
func (r *Report) Populated() []Field {
	all := r.Fields()
	out := make([]Field, 0, len(all))
	for _, f := range all {
		if f.Values != nil {
			out = append(out, f)
		}
	}
	return out
}
