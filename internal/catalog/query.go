// Copyright 2025 James Ross
// Package catalog implements the Catalog Query Builder and Query Executor:
// assembling structured catalog queries (columns, conditions, qualifiers,
// pagination) and submitting them against the grid's metadata catalog.
package catalog

import (
	"fmt"
	"strings"

	"github.com/jamesross/dgrid-batch/internal/bferrors"
)

// Projection pairs a catalog column with the external label used as its
// JSON key in output rows.
type Projection struct {
	Column Column
	Label  string
}

// Condition is one `(column, operator, literal)` triple, composed
// conjunctively with every other condition on a Query.
type Condition struct {
	Column   Column
	Operator string
	Literal  string
}

// Query is a backend-ready catalog query record, ignorant of transport.
type Query struct {
	Columns    []Projection
	Conditions []Condition
	Qualifiers map[string]string
	PageSize   int
	Cursor     string
}

// MakeQuery allocates a Query with an empty condition list and a zero cursor.
func MakeQuery(pageSize int, columns []Projection) *Query {
	return &Query{
		Columns:    columns,
		Conditions: nil,
		Qualifiers: map[string]string{},
		PageSize:   pageSize,
		Cursor:     "",
	}
}

// allowedOperators is the fixed set of comparators AddConditions will
// render into raw SQL. Both Operator and Literal are rendered inline
// (render() in executor.go), so an unchecked Operator is as much a SQL
// injection vector as an unchecked Literal; this allow-list closes that
// path the same way the single-quote check closes the other.
var allowedOperators = map[string]bool{
	"=": true, "<": true, ">": true, "<=": true, ">=": true, "<>": true,
	"LIKE": true, "NOT LIKE": true,
}

// AddConditions appends each condition to q, in order. Literal values are
// eventually rendered as `<operator> '<literal>'`; a literal containing a
// single quote is rejected rather than escaped (spec §9 open question,
// resolved here as policy: reject, documented and tested). Operator is
// validated against allowedOperators for the same reason.
func AddConditions(q *Query, conds []Condition) (*Query, error) {
	for _, c := range conds {
		if !allowedOperators[strings.ToUpper(c.Operator)] {
			return nil, bferrors.NewValidationError("operator", c.Operator,
				"unknown catalog condition operator")
		}
		if strings.Contains(c.Literal, "'") {
			return nil, bferrors.NewValidationError("literal", c.Literal,
				"catalog literals containing a single quote are rejected")
		}
		q.Conditions = append(q.Conditions, c)
	}
	return q, nil
}

// AddQualifier sets a keyed qualifier, e.g. ZONE -> name.
func AddQualifier(q *Query, key, value string) {
	if q.Qualifiers == nil {
		q.Qualifiers = map[string]string{}
	}
	q.Qualifiers[key] = value
}

// ListMetadataDataObjectConditions builds the condition set for listing
// metadata on a data object, optionally restricted to one attribute.
func ListMetadataDataObjectConditions(collPath, dataName, attr string) []Condition {
	conds := []Condition{
		{Column: CollName, Operator: "=", Literal: collPath},
		{Column: DataName, Operator: "=", Literal: dataName},
	}
	if attr != "" {
		conds = append(conds, Condition{Column: MetaDataAttrName, Operator: "=", Literal: attr})
	}
	return conds
}

// ListMetadataCollectionConditions builds the condition set for listing
// metadata on a collection, optionally restricted to one attribute.
func ListMetadataCollectionConditions(collPath, attr string) []Condition {
	conds := []Condition{
		{Column: CollName, Operator: "=", Literal: collPath},
	}
	if attr != "" {
		conds = append(conds, Condition{Column: MetaCollAttrName, Operator: "=", Literal: attr})
	}
	return conds
}

// SearchDataObjectsByAVUConditions builds the condition set for searching
// data objects by AVU (attribute/value, with a per-AVU operator on value).
func SearchDataObjectsByAVUConditions(attr, value, operator string) []Condition {
	if operator == "" {
		operator = "="
	}
	return []Condition{
		{Column: MetaDataAttrName, Operator: "=", Literal: attr},
		{Column: MetaDataAttrVal, Operator: operator, Literal: value},
	}
}

// SearchCollectionsByAVUConditions is the collection-side symmetric form.
func SearchCollectionsByAVUConditions(attr, value, operator string) []Condition {
	if operator == "" {
		operator = "="
	}
	return []Condition{
		{Column: MetaCollAttrName, Operator: "=", Literal: attr},
		{Column: MetaCollAttrVal, Operator: operator, Literal: value},
	}
}

// SubtreePattern computes the LIKE pattern for the restrict-to-subtree rule:
// absolute roots yield "<root>%", non-absolute fragments yield "%<root>%"
// (spec §4.1, tested against spec §8 property 6).
func SubtreePattern(root string) string {
	if strings.HasPrefix(root, "/") {
		return fmt.Sprintf("%s%%", root)
	}
	return fmt.Sprintf("%%%s%%", root)
}

// RestrictToSubtreeCondition builds the LIKE condition on COLL_NAME for a
// restrict-to-subtree root.
func RestrictToSubtreeCondition(root string) Condition {
	return Condition{Column: CollName, Operator: "LIKE", Literal: SubtreePattern(root)}
}
