// Package configbinder binds loosely typed maps (YAML options, decoded JSON
// records) onto typed structs with mapstructure.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// BindProperties binds a map of properties to a target struct using its "yaml" tags.
// Strings are converted to numbers and bools where the target field requires it.
func BindProperties(properties map[string]interface{}, target interface{}) error {
	return decode(properties, target, "yaml")
}

// DecodeRecord binds a decoded JSON object onto target using its "mapstructure" tags.
// Targets can collect unknown keys with a `mapstructure:",remain"` map field.
// json.Number values are accepted for string fields.
func DecodeRecord(record map[string]interface{}, target interface{}) error {
	return decode(record, target, "mapstructure")
}

func decode(input map[string]interface{}, target interface{}, tagName string) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          tagName,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind properties to struct %s: %w", targetType.Name(), err)
	}
	return nil
}
