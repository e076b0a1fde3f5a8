package models

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

// Record is a typed warehouse row identified by a string key.
type Record interface {
	Key() string
	SetKey(key string)
}

// Row is an untyped warehouse row keyed by column name.
type Row map[string]interface{}

// ChangeKind tags a RecordChange.
type ChangeKind string

const (
	// ChangeNew is a row created in the dashboard; its key is assigned on insert.
	ChangeNew ChangeKind = "new"
	// ChangeExisting is an edited row that already carries its key.
	ChangeExisting ChangeKind = "existing"
)

// RecordChange is one entry of a dashboard save batch.
type RecordChange struct {
	Kind   ChangeKind
	Record Record
}

// RegisterValidators teaches validate how to read the nullable value types.
func RegisterValidators(validate *validator.Validate) {
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		switch v := field.Interface().(type) {
		case Text:
			if v.Valid {
				return v.String
			}
		case Date:
			if v.Valid {
				return v.Time
			}
		case Decimal:
			if v.Valid {
				return v.Float64
			}
		}
		return nil
	}, Text{}, Date{}, Decimal{})
}
