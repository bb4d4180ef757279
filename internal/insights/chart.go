package insights

import "datanerd/internal/dataset"

// ChartKind is a suggested visualization family.
type ChartKind string

const (
	ChartNone      ChartKind = "none"
	ChartScatter   ChartKind = "scatter"
	ChartHistogram ChartKind = "histogram"
	ChartBar       ChartKind = "bar"
)

// Chart is a rendering hint for a frontend. X and Y name columns of the
// frame the suggestion was made for; Y is empty for histograms.
type Chart struct {
	Kind ChartKind `json:"kind"`
	X    string    `json:"x,omitempty"`
	Y    string    `json:"y,omitempty"`
}

// SuggestChart picks a chart for a frame from its column kinds: two numeric
// columns scatter against each other, one numeric column becomes a histogram
// (or a bar chart per category when a categorical column exists), and a
// categorical column alone becomes a bar chart of its value counts.
func SuggestChart(f *dataset.Frame) Chart {
	var numeric, categorical []string
	for _, c := range f.Describe().Columns {
		switch c.Kind {
		case "numeric":
			numeric = append(numeric, c.Name)
		case "categorical", "boolean":
			categorical = append(categorical, c.Name)
		}
	}

	switch {
	case len(numeric) >= 2:
		return Chart{Kind: ChartScatter, X: numeric[0], Y: numeric[1]}
	case len(numeric) == 1 && len(categorical) >= 1:
		return Chart{Kind: ChartBar, X: categorical[0], Y: numeric[0]}
	case len(numeric) == 1:
		return Chart{Kind: ChartHistogram, X: numeric[0]}
	case len(categorical) >= 1:
		return Chart{Kind: ChartBar, X: categorical[0], Y: "count"}
	default:
		return Chart{Kind: ChartNone}
	}
}
