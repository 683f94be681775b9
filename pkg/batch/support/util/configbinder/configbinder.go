// Package configbinder decodes loosely typed configuration maps into structs.
package configbinder

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// BindProperties binds properties to target using the "yaml" struct tag.
// Weakly typed input is allowed, so "5432" decodes into an int field.
func BindProperties(properties map[string]interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(properties); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind properties to struct %s: %w", targetType.Name(), err)
	}
	return nil
}

// Section returns the named connection maps under adapterConfigs[section]
// (e.g. section "database" yields {"forecast": {...}}).
// A missing section yields an empty map.
func Section(adapterConfigs map[string]interface{}, section string) (map[string]map[string]interface{}, error) {
	out := map[string]map[string]interface{}{}
	raw, ok := adapterConfigs[section]
	if !ok || raw == nil {
		return out, nil
	}
	entries, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("adapter section %q is %T, expected a map", section, raw)
	}
	for name, entry := range entries {
		m, ok := entry.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("adapter %s.%s is %T, expected a map", section, name, entry)
		}
		out[name] = m
	}
	return out, nil
}

// Names returns the sorted keys of a section map.
func Names(section map[string]map[string]interface{}) []string {
	names := make([]string, 0, len(section))
	for name := range section {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
