package record

// Flat is a single-level record keyed by underscore-joined paths.
type Flat map[string]any

// Flatten joins nested keys with "_" so that every leaf ends up at
// prefix + path. Keys that already contain "_" can collide; the later
// write wins and nothing is deduplicated.
func Flatten(m Map, prefix string) Flat {
	out := make(Flat, len(m))
	flattenInto(out, m, prefix)
	return out
}

func flattenInto(out Flat, m Map, prefix string) {
	for key, value := range m {
		switch v := value.(type) {
		case Map:
			flattenInto(out, v, prefix+key+"_")
		case Scalar:
			out[prefix+key] = v.V
		default:
			out[prefix+key] = v
		}
	}
}
