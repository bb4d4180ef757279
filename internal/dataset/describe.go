package dataset

// maxSamples caps the sample values carried per column so descriptors stay
// small enough to embed in prompts.
const maxSamples = 5

// ColumnDesc summarizes one column for prompting and EDA.
type ColumnDesc struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	NullCount int      `json:"null_count"`
	Samples   []string `json:"samples"`
}

// Descriptor is a derived snapshot of a frame. It is regenerated on demand
// and never mutated in place.
type Descriptor struct {
	RowCount int          `json:"row_count"`
	Columns  []ColumnDesc `json:"columns"`
}

// Describe builds a descriptor. Pure: it always succeeds, degrading to
// "unknown" kinds on ambiguous or empty columns.
func (f *Frame) Describe() Descriptor {
	desc := Descriptor{
		RowCount: f.rows,
		Columns:  make([]ColumnDesc, len(f.cols)),
	}

	for i, c := range f.cols {
		cd := ColumnDesc{Name: c.name, Kind: c.kind.String()}
		seen := make(map[string]struct{})
		for r, cell := range c.raw {
			if c.null[r] {
				cd.NullCount++
				continue
			}
			if len(cd.Samples) < maxSamples {
				if _, dup := seen[cell]; !dup {
					seen[cell] = struct{}{}
					cd.Samples = append(cd.Samples, cell)
				}
			}
		}
		desc.Columns[i] = cd
	}

	return desc
}
