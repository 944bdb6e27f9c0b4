package models

import "strings"

// ColumnType is a warehouse column type derived by schema inference.
type ColumnType string

const (
	TypeInteger ColumnType = "INTEGER"
	TypeFloat   ColumnType = "FLOAT"
	TypeBoolean ColumnType = "BOOLEAN"
	TypeString  ColumnType = "STRING"
)

// Column is one named, typed column.
type Column struct {
	Name string     `json:"name" bson:"name"`
	Type ColumnType `json:"type" bson:"type"`
}

// SchemaDescriptor is an ordered column list; order follows the source header.
type SchemaDescriptor struct {
	Columns []Column `json:"columns" bson:"columns"`
}

// Type returns the type of the named column.
func (s SchemaDescriptor) Type(name string) (ColumnType, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c.Type, true
		}
	}
	return "", false
}

// Names returns the column names in order.
func (s SchemaDescriptor) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

func (s SchemaDescriptor) String() string {
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		parts[i] = c.Name + ":" + string(c.Type)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
