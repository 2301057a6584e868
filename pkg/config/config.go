// Package config loads configuration structs from YAML files and environment
// variables using struct tags:
//
//	env:"NAME"        environment variable overriding the field
//	yaml:"name"       key in the YAML file
//	default:"value"   applied when the field is still zero after loading
//	required:"true"   loading fails when the field is zero and has no default
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Validator interface allows config structs to implement custom validation logic.
// If a config struct implements this interface, validation will be automatically
// called after loading configuration from files and environment variables.
type Validator interface {
	Validate() error
}

// setFieldValue parses raw according to the field's kind and stores it.
// String slices are comma separated.
func setFieldValue(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("failed to convert %s to duration: %v", raw, err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int64, reflect.Int32:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to convert %s to int: %v", raw, err)
		}
		field.SetInt(v)
	case reflect.Float64, reflect.Float32:
		v, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("failed to convert %s to float: %v", raw, err)
		}
		field.SetFloat(v)
	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("failed to convert %s to bool: %v", raw, err)
		}
		field.SetBool(v)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		values := strings.Split(raw, ",")
		slice := reflect.MakeSlice(field.Type(), len(values), len(values))
		for i, v := range values {
			slice.Index(i).SetString(strings.TrimSpace(v))
		}
		field.Set(slice)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}

// fieldKey identifies a field by struct type + field name to avoid collisions
// between identically named fields of different nested structs.
func fieldKey(t reflect.Type, f reflect.StructField) string {
	return t.Name() + "." + f.Name
}

func applyEnv(val reflect.Value, typeOfT reflect.Type, setFields map[string]bool) error {
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typeOfT.Field(i)

		if !fieldType.IsExported() {
			continue
		}

		if field.Kind() == reflect.Struct && field.Type() != durationType {
			if err := applyEnv(field, fieldType.Type, setFields); err != nil {
				return err
			}
			continue
		}

		tag := fieldType.Tag.Get("env")
		if tag == "" {
			continue
		}
		envVal := os.Getenv(tag)
		if envVal == "" {
			continue
		}

		setFields[fieldKey(typeOfT, fieldType)] = true
		if err := setFieldValue(field, envVal); err != nil {
			return fmt.Errorf("%s: %w", tag, err)
		}
	}
	return nil
}

func applyDefaultsAndRequired(val reflect.Value, typeOfT reflect.Type, setFields map[string]bool) error {
	var result error
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typeOfT.Field(i)

		if !fieldType.IsExported() {
			continue
		}

		if field.Kind() == reflect.Struct && field.Type() != durationType {
			if err := applyDefaultsAndRequired(field, fieldType.Type, setFields); err != nil {
				result = multierror.Append(result, err)
			}
			continue
		}

		defaultTag := fieldType.Tag.Get("default")
		required := isTrue(fieldType.Tag.Get("required")) && defaultTag == ""

		if field.IsZero() && required {
			result = multierror.Append(result, fmt.Errorf("required field env:%s / yaml:%s is missing",
				fieldType.Tag.Get("env"), fieldType.Tag.Get("yaml")))
			continue
		}

		if field.IsZero() && defaultTag != "" && !setFields[fieldKey(typeOfT, fieldType)] {
			if err := setFieldValue(field, defaultTag); err != nil {
				result = multierror.Append(result, fmt.Errorf("default for %s: %w", fieldType.Name, err))
			}
		}
	}
	return result
}

func isTrue(tag string) bool {
	tag = strings.ToLower(tag)
	return tag == "true" || tag == "1"
}

func validate[T any](dest *T) error {
	// the pointer method set covers value receivers too
	if validator, ok := any(dest).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	return nil
}

// GetConfigFromEnvVars loads configuration from environment variables only.
// It processes struct tags: env, default, required.
// Example usage:
//
//	var cfg MyConfig
//	err := GetConfigFromEnvVars(&cfg)
func GetConfigFromEnvVars[T any](dest *T) error {
	return loadAndValidate(dest, make(map[string]bool))
}

func loadAndValidate[T any](dest *T, setFields map[string]bool) error {
	if err := load(dest, setFields); err != nil {
		return err
	}
	return validate(dest)
}

// load applies env vars, then defaults to fields that are still zero and
// absent from setFields.
func load[T any](dest *T, setFields map[string]bool) error {
	val := reflect.ValueOf(dest).Elem()
	typeOfT := val.Type()

	if err := applyEnv(val, typeOfT, setFields); err != nil {
		return err
	}
	if err := applyDefaultsAndRequired(val, typeOfT, setFields); err != nil {
		var zero T
		*dest = zero
		return err
	}
	return nil
}

// GetConfig loads configuration from YAML file first, then overlays environment variables.
// ${VAR} references inside the file are expanded from the environment before parsing.
// If filepath is empty, only environment variables are used.
// If allowFileErrors is true, file read/parse errors fallback to env vars only.
// Example usage:
//
//	var cfg MyConfig
//	err := GetConfig(&cfg, "config.yaml", true)
func GetConfig[T any](dest *T, filepath string, allowFileErrors bool) error {
	if filepath == "" {
		return GetConfigFromEnvVars(dest)
	}
	data, err := os.ReadFile(filepath) //nolint:gosec // G304: path is operator supplied
	if err != nil {
		if allowFileErrors {
			return GetConfigFromEnvVars(dest)
		}
		return fmt.Errorf("failed to read file: %w", err)
	}
	var doc yaml.Node
	err = yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &doc)
	if err == nil && doc.Kind != 0 {
		err = doc.Decode(dest)
	}
	if err != nil {
		if allowFileErrors {
			return GetConfigFromEnvVars(dest)
		}
		return fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	// keys present in the file keep their value even when it is the zero
	// value, so "enabled: false" wins over default:"true"
	setFields := make(map[string]bool)
	if len(doc.Content) > 0 {
		markYAMLFields(doc.Content[0], reflect.TypeOf(dest).Elem(), setFields)
	}
	return loadAndValidate(dest, setFields)
}

// markYAMLFields records every struct field that has a key in the mapping node.
func markYAMLFields(node *yaml.Node, t reflect.Type, setFields map[string]bool) {
	if node.Kind != yaml.MappingNode || t.Kind() != reflect.Struct {
		return
	}

	values := make(map[string]*yaml.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		values[node.Content[i].Value] = node.Content[i+1]
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			continue
		}
		isStruct := f.Type.Kind() == reflect.Struct && f.Type != durationType
		if isStruct && opts == "inline" {
			markYAMLFields(node, f.Type, setFields)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		value, ok := values[name]
		if !ok || value.Tag == "!!null" {
			continue
		}
		if isStruct {
			markYAMLFields(value, f.Type, setFields)
			continue
		}
		setFields[fieldKey(t, f)] = true
	}
}
