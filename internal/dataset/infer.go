package dataset

import (
	"strconv"
	"strings"
	"time"
)

// Column kind inference. Each non-null cell is classified once; the column
// takes the majority kind. Ties break in the order
// numeric > datetime > categorical > text, so ambiguous columns degrade to a
// usable kind instead of erroring.

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

func parseNumeric(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v, err == nil
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes":
		return true, true
	case "false", "no":
		return false, true
	}
	return false, false
}

func parseDatetime(s string) (time.Time, bool) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// inferKind votes over the non-null cells of a column.
func inferKind(raw []string, null []bool) Kind {
	var numeric, datetime, boolean, text, nonNull int
	distinct := make(map[string]struct{})

	for i, cell := range raw {
		if null[i] {
			continue
		}
		nonNull++
		distinct[cell] = struct{}{}
		if _, ok := parseNumeric(cell); ok {
			numeric++
		} else if _, ok := parseBool(cell); ok {
			boolean++
		} else if _, ok := parseDatetime(cell); ok {
			datetime++
		} else {
			text++
		}
	}

	if nonNull == 0 {
		return KindUnknown
	}

	// Majority vote; the comparison order encodes the tie-break.
	best, kind := numeric, KindNumeric
	if datetime > best {
		best, kind = datetime, KindDatetime
	}
	if boolean > best {
		best, kind = boolean, KindBoolean
	}
	if text > best {
		best, kind = text, KindText
	}

	// Low-cardinality text reads as categorical.
	if kind == KindText && isCategorical(len(distinct), nonNull) {
		return KindCategorical
	}
	return kind
}

// isCategorical treats a text column as categorical when its values repeat:
// fewer distinct values than rows, and not too many of them overall.
func isCategorical(distinct, nonNull int) bool {
	if distinct >= nonNull {
		return false
	}
	return distinct <= 20 || distinct*10 <= nonNull
}
