package config

import (
	"reflect"
	"strings"

	"github.com/spf13/pflag"
)

type fieldInfo struct {
	configPath string // "jwt.access_ttl"
	flagName   string // "jwt-access-ttl"
	usage      string
	kind       reflect.Kind
}

// buildFlagMapping walks Config and returns flag name -> config path along
// with the scalar fields found.
func buildFlagMapping() (map[string]string, []fieldInfo) {
	var fields []fieldInfo
	walkStruct(reflect.TypeOf(Config{}), "", &fields)

	mapping := make(map[string]string, len(fields))
	for _, f := range fields {
		mapping[f.flagName] = f.configPath
	}
	return mapping, fields
}

func walkStruct(t reflect.Type, parentPath string, fields *[]fieldInfo) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		if strings.Contains(tag, "squash") {
			walkStruct(field.Type, parentPath, fields)
			continue
		}

		path := tag
		if parentPath != "" {
			path = parentPath + "." + tag
		}

		ft := field.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		switch {
		case ft.Kind() == reflect.Struct:
			walkStruct(ft, path, fields)
		case isScalarType(ft):
			*fields = append(*fields, fieldInfo{
				configPath: path,
				flagName:   configPathToFlagName(path),
				usage:      field.Tag.Get("usage"),
				kind:       ft.Kind(),
			})
		}
	}
}

func isScalarType(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.String, reflect.Bool,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// configPathToFlagName turns "jwt.access_ttl" into "jwt-access-ttl".
func configPathToFlagName(configPath string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(configPath)
}

// RegisterFlags registers one flag per scalar config field. Flags that already
// exist on flagSet are left alone.
func RegisterFlags(flagSet *pflag.FlagSet) {
	_, fields := buildFlagMapping()
	for _, f := range fields {
		if flagSet.Lookup(f.flagName) != nil {
			continue
		}
		switch f.kind {
		case reflect.String:
			flagSet.String(f.flagName, "", f.usage)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			flagSet.Int(f.flagName, 0, f.usage)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			flagSet.Uint(f.flagName, 0, f.usage)
		case reflect.Bool:
			flagSet.Bool(f.flagName, false, f.usage)
		case reflect.Float32, reflect.Float64:
			flagSet.Float64(f.flagName, 0, f.usage)
		}
	}
}

// GetFlagMapping returns flag name -> config path for every registered flag.
func GetFlagMapping() map[string]string {
	mapping, _ := buildFlagMapping()
	return mapping
}
