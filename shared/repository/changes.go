package repository

import (
	"fmt"
	"reflect"

	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"gorm.io/gorm/schema"
)

var localizedType = reflect.TypeOf(models.Localized{})

// protected columns are never written through a patch
var protected = map[string]bool{
	"id":           true,
	"client_id":    true,
	"created_at":   true,
	"published_at": true,
}

// Changes flattens a patch struct into a column map for gorm Updates.
// Only non-nil pointer fields are included. A *models.Localized field is
// expanded into its per-locale columns using the field's embeddedPrefix.
func Changes(patch any, namer schema.Namer) (map[string]any, error) {
	v := reflect.ValueOf(patch)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("nil patch")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("patch must be a struct, got %s", v.Kind())
	}

	out := make(map[string]any)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := v.Field(i)
		if fv.Kind() != reflect.Pointer || fv.IsNil() {
			continue
		}

		tags := schema.ParseTagSetting(field.Tag.Get("gorm"), ";")
		if _, skip := tags["-"]; skip {
			continue
		}

		elem := fv.Elem()
		if elem.Type() == localizedType {
			prefix, ok := tags["EMBEDDEDPREFIX"]
			if !ok {
				prefix = namer.ColumnName("", field.Name) + "_"
			}
			loc := elem.Interface().(models.Localized)
			out[prefix+"ru"] = loc.Ru
			out[prefix+"kk"] = loc.Kk
			out[prefix+"en"] = loc.En
			continue
		}

		column, ok := tags["COLUMN"]
		if !ok {
			column = namer.ColumnName("", field.Name)
		}
		if protected[column] {
			continue
		}
		out[column] = elem.Interface()
	}
	return out, nil
}
