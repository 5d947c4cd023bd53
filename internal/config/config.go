// Package config hydrates configuration structs from an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidTarget happens when the target is not a pointer to a struct.
	ErrInvalidTarget = errors.New("config target must be a pointer to a struct")
)

// Load fills target from the YAML file at path, when path is not empty,
// and then overrides it with environment variables.
//
// The environment key of a field is its YAML key path, upper-cased and joined
// with "_" under prefix: storage.use_ssl with prefix "ESB_HA" reads
// ESB_HA_STORAGE_USE_SSL. Inlined structs share the key of their parent
// and fields tagged `yaml:"-"` are not read.
func Load(path, prefix string, target interface{}) error {
	v := reflect.ValueOf(target)
	if target == nil || v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return ErrInvalidTarget
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, target); err != nil {
			return fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	return overrideFromEnv(v.Elem(), strings.ToUpper(prefix))
}

func overrideFromEnv(v reflect.Value, key string) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		// Exported fields of unexported embedded structs are still settable.
		if field.PkgPath != "" && !(field.Anonymous && field.Type.Kind() == reflect.Struct) {
			continue
		}

		name, inline := yamlKey(field)
		if name == "-" {
			continue
		}

		fieldKey := key
		if !inline {
			fieldKey = joinKey(key, name)
		}

		fv := v.Field(i)
		if fv.Kind() == reflect.Struct {
			if err := overrideFromEnv(fv, fieldKey); err != nil {
				return err
			}
			continue
		}

		raw, ok := os.LookupEnv(fieldKey)
		if !ok {
			continue
		}
		if err := setValue(fv, raw); err != nil {
			return fmt.Errorf("invalid value of %s: %w", fieldKey, err)
		}
	}
	return nil
}

// yamlKey is the key yaml.v3 decodes the field from.
func yamlKey(field reflect.StructField) (string, bool) {
	parts := strings.Split(field.Tag.Get("yaml"), ",")
	name := parts[0]
	for _, opt := range parts[1:] {
		if opt == "inline" {
			return "", true
		}
	}
	if name == "" {
		name = strings.ToLower(field.Name)
	}
	return name, false
}

func joinKey(parent, name string) string {
	name = strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	if parent == "" {
		return name
	}
	return parent + "_" + name
}

func setValue(v reflect.Value, raw string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	default:
		return fmt.Errorf("unsupported kind %s", v.Kind())
	}
	return nil
}
