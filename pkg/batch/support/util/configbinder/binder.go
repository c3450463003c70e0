// Package configbinder binds string property maps from job definitions onto typed structs.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// BindProperties decodes props into target, which must be a pointer to a struct.
// Fields are matched by their `yaml` tag and values are weakly converted,
// so "20" binds to an int field and "true" to a bool field.
func BindProperties(props map[string]string, target interface{}) error {
	if len(props) == 0 {
		return nil
	}

	input := make(map[string]interface{}, len(props))
	for k, v := range props {
		input[k] = v
	}
	return Decode(input, target)
}

// Decode decodes an arbitrary map, such as a yaml section, into target.
func Decode(input interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		TagName:          "yaml",
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(input); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType != nil && targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind properties to struct %s: %w", targetType, err)
	}
	return nil
}
