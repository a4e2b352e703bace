package domain

import "fmt"

// MTTRUnit is the unit an MTTR value is expressed in.
type MTTRUnit string

// MTTR units.
const (
	MTTRUnitMinutes MTTRUnit = "minutes"
	MTTRUnitDays    MTTRUnit = "days"
)

// MTTR is a recovery time tagged with its unit.
//
// Storage keeps a single signed column where a negative number means days.
// Use Signed and MTTRFromSigned at the persistence boundary only.
type MTTR struct {
	Unit  MTTRUnit `json:"unit"`
	Value int64    `json:"value"`
}

// Minutes returns an MTTR measured in minutes.
func Minutes(v int64) MTTR {
	return MTTR{Unit: MTTRUnitMinutes, Value: v}
}

// Days returns an MTTR measured in calendar days.
func Days(v int64) MTTR {
	return MTTR{Unit: MTTRUnitDays, Value: v}
}

// Signed encodes the value for the legacy signed column.
func (m MTTR) Signed() int64 {
	if m.Unit == MTTRUnitDays {
		return -m.Value
	}
	return m.Value
}

// MTTRFromSigned decodes a value stored in the legacy signed column.
func MTTRFromSigned(v int64) MTTR {
	if v < 0 {
		return Days(-v)
	}
	return Minutes(v)
}

// String renders the value with its unit, e.g. "135 min" or "3 days".
func (m MTTR) String() string {
	if m.Unit == MTTRUnitDays {
		if m.Value == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", m.Value)
	}
	return fmt.Sprintf("%d min", m.Value)
}

// EqualMTTR compares two optional MTTR values. Two nils are equal.
func EqualMTTR(a, b *MTTR) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
