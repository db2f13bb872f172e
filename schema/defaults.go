package schema

// Defaults holds the default run configuration derived from a schema.
type Defaults struct {
	Configurable map[string]interface{} `json:"configurable,omitempty"`
}

// DeriveDefaults returns each field's declared default, or the zero value of
// its type when none is declared.
func DeriveDefaults(s *Schema) *Defaults {
	if s == nil {
		return nil
	}
	d := &Defaults{Configurable: make(map[string]interface{}, len(s.Fields))}
	for name, f := range s.Fields {
		if f.HasDefault {
			d.Configurable[name] = f.Default
			continue
		}
		d.Configurable[name] = zeroValue(f.Type)
	}
	return d
}

func zeroValue(typ string) interface{} {
	switch typ {
	case "string":
		return ""
	case "integer", "number":
		return 0
	case "boolean":
		return false
	case "array":
		return []interface{}{}
	case "object":
		return map[string]interface{}{}
	default:
		return nil
	}
}
