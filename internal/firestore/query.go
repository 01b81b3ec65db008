package firestore

import "encoding/json"

// Operator is a field filter comparison.
type Operator string

const (
	OpEqual              Operator = "EQUAL"
	OpNotEqual           Operator = "NOT_EQUAL"
	OpLessThan           Operator = "LESS_THAN"
	OpLessThanOrEqual    Operator = "LESS_THAN_OR_EQUAL"
	OpGreaterThan        Operator = "GREATER_THAN"
	OpGreaterThanOrEqual Operator = "GREATER_THAN_OR_EQUAL"
	OpArrayContains      Operator = "ARRAY_CONTAINS"
	OpIn                 Operator = "IN"
)

// Direction is a sort direction for OrderBy.
type Direction string

const (
	Ascending  Direction = "ASCENDING"
	Descending Direction = "DESCENDING"
)

// Filter compares one field against a native value.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// Where is shorthand for building a Filter.
func Where(field string, op Operator, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Order sorts query results by one field.
type Order struct {
	Field     string
	Direction Direction
}

// Query is a structured query over a single collection. Parent is an
// optional document path ("users/abc") for querying a subcollection.
type Query struct {
	Parent     string
	Collection string
	Filters    []Filter
	OrderBy    []Order
	Limit      int
}

type fieldRef struct {
	FieldPath string `json:"fieldPath"`
}

type fieldFilter struct {
	Field fieldRef `json:"field"`
	Op    Operator `json:"op"`
	Value Value    `json:"value"`
}

type compositeFilter struct {
	Op      string       `json:"op"`
	Filters []wireFilter `json:"filters"`
}

type wireFilter struct {
	FieldFilter     *fieldFilter     `json:"fieldFilter,omitempty"`
	CompositeFilter *compositeFilter `json:"compositeFilter,omitempty"`
}

type wireOrder struct {
	Field     fieldRef  `json:"field"`
	Direction Direction `json:"direction,omitempty"`
}

type collectionSelector struct {
	CollectionID string `json:"collectionId"`
}

type structuredQuery struct {
	From    []collectionSelector `json:"from"`
	Where   *wireFilter          `json:"where,omitempty"`
	OrderBy []wireOrder          `json:"orderBy,omitempty"`
	Limit   int                  `json:"limit,omitempty"`
}

// MarshalJSON renders the runQuery request body. One filter is sent as a
// plain fieldFilter; several are ANDed in a compositeFilter.
func (q Query) MarshalJSON() ([]byte, error) {
	sq := structuredQuery{
		From:  []collectionSelector{{CollectionID: q.Collection}},
		Limit: q.Limit,
	}

	switch len(q.Filters) {
	case 0:
	case 1:
		sq.Where = &wireFilter{FieldFilter: q.Filters[0].wire()}
	default:
		composite := &compositeFilter{Op: "AND"}
		for _, f := range q.Filters {
			composite.Filters = append(composite.Filters, wireFilter{FieldFilter: f.wire()})
		}
		sq.Where = &wireFilter{CompositeFilter: composite}
	}

	for _, o := range q.OrderBy {
		sq.OrderBy = append(sq.OrderBy, wireOrder{Field: fieldRef{FieldPath: o.Field}, Direction: o.Direction})
	}

	return json.Marshal(map[string]structuredQuery{"structuredQuery": sq})
}

func (f Filter) wire() *fieldFilter {
	return &fieldFilter{
		Field: fieldRef{FieldPath: f.Field},
		Op:    f.Op,
		Value: Encode(f.Value),
	}
}
