package domain

type FieldType string

const (
	FieldTypeID          FieldType = "id"
	FieldTypeNumerical   FieldType = "numerical"
	FieldTypeCategorical FieldType = "categorical"
	FieldTypeBoolean     FieldType = "boolean"
	FieldTypeDatetime    FieldType = "datetime"
)

const (
	SubtypeInteger = "integer"
	SubtypeFloat   = "float"
	SubtypeString  = "string"
)

type Field struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Subtype     string    `json:"subtype,omitempty" yaml:"subtype,omitempty"`
	PII         bool      `json:"pii,omitempty" yaml:"pii,omitempty"`
	PIICategory string    `json:"pii_category,omitempty" yaml:"pii_category,omitempty"`
	Min         *float64  `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64  `json:"max,omitempty" yaml:"max,omitempty"`
}

type Schema struct {
	Name       string  `json:"name" yaml:"name"`
	PrimaryKey string  `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	Fields     []Field `json:"fields" yaml:"fields"`
}

// ConditionSpec is the on-disk form of one sampling condition: fixed
// values for one or more columns plus a requested row count.
type ConditionSpec struct {
	ColumnValues map[string]interface{} `json:"column_values" yaml:"column_values"`
	NumRows      int                    `json:"num_rows,omitempty" yaml:"num_rows,omitempty"`
}

type ConditionsFile struct {
	Conditions []ConditionSpec `json:"conditions" yaml:"conditions"`
}
