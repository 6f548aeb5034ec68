package mlmd

import "database/sql"

// encodedProperty is the three-nullable-column layout every *Property table
// shares (spec §4.3): exactly one of IntValue/DoubleValue/StringValue is set.
type encodedProperty struct {
	IntValue    sql.NullInt64
	DoubleValue sql.NullFloat64
	StringValue sql.NullString
}

// encodeProperty sets exactly the column matching v's variant, leaving the
// other two NULL.
func encodeProperty(v PropertyValue) encodedProperty {
	var e encodedProperty
	switch {
	case v.IsInt():
		e.IntValue = sql.NullInt64{Int64: v.Int(), Valid: true}
	case v.IsDouble():
		e.DoubleValue = sql.NullFloat64{Float64: v.Double(), Valid: true}
	default:
		// String and Proto both land in string_value (spec §9).
		e.StringValue = sql.NullString{String: v.String(), Valid: true}
	}
	return e
}

// decodeProperty picks the first non-null column in int -> double -> string
// order. A row with no non-null column is malformed and classifies as
// data-corruption (spec §4.3).
func decodeProperty(op string, e encodedProperty) (PropertyValue, error) {
	switch {
	case e.IntValue.Valid:
		return IntValue(e.IntValue.Int64), nil
	case e.DoubleValue.Valid:
		return DoubleValue(e.DoubleValue.Float64), nil
	case e.StringValue.Valid:
		return StringValue(e.StringValue.String), nil
	default:
		return PropertyValue{}, newErr(KindDataCorruption, op, "property row has no non-null value column")
	}
}
