package models

import (
	"context"
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/schema"
)

func init() {
	schema.RegisterSerializer("decimal", DecimalSerializer{})
}

// DecimalSerializer stores decimal amounts as their canonical text so every
// SQL backend returns exactly the digits that were written. sqlite would
// otherwise keep only 15 significant digits of a numeric column.
type DecimalSerializer struct{}

func (DecimalSerializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	target := field.ReflectValueOf(ctx, dst)
	if dbValue == nil {
		target.Set(reflect.Zero(field.FieldType))
		return nil
	}
	var (
		d   decimal.Decimal
		err error
	)
	switch v := dbValue.(type) {
	case string:
		d, err = decimal.NewFromString(v)
	case []byte:
		d, err = decimal.NewFromString(string(v))
	case int64:
		d = decimal.NewFromInt(v)
	case float64:
		d = decimal.NewFromFloat(v)
	default:
		return fmt.Errorf("models.DecimalSerializer: cannot scan %T into %s", dbValue, field.Name)
	}
	if err != nil {
		return fmt.Errorf("models.DecimalSerializer: %s: %w", field.Name, err)
	}
	if field.FieldType.Kind() == reflect.Ptr {
		target.Set(reflect.ValueOf(&d))
	} else {
		target.Set(reflect.ValueOf(d))
	}
	return nil
}

func (DecimalSerializer) Value(ctx context.Context, field *schema.Field, dst reflect.Value, fieldValue interface{}) (interface{}, error) {
	switch v := fieldValue.(type) {
	case decimal.Decimal:
		return v.String(), nil
	case *decimal.Decimal:
		if v == nil {
			return nil, nil
		}
		return v.String(), nil
	}
	return nil, fmt.Errorf("models.DecimalSerializer: unsupported type %T for %s", fieldValue, field.Name)
}
