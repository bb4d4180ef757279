package dataset

// Kind is the inferred semantic type of a column.
type Kind int

const (
	KindUnknown Kind = iota
	KindNumeric
	KindDatetime
	KindBoolean
	KindCategorical
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindDatetime:
		return "datetime"
	case KindBoolean:
		return "boolean"
	case KindCategorical:
		return "categorical"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}
