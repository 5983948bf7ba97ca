package admission

import (
	"fmt"
	"strings"
)

// PatchOp is a JSON Patch operation returned by a mutating webhook. Only
// add, replace and remove are supported.
type PatchOp struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value,omitempty"`
}

const specPrefix = "/spec/"

// splitPath resolves a patch path to segments within the spec document.
// Paths may address fields either as "/spec/x/y" or as the bare "/x/y"; the
// bare form is accepted for compatibility but flagged with a deprecation
// warning.
func splitPath(path string) ([]string, bool, error) {
	if path == "" || !strings.HasPrefix(path, "/") {
		return nil, false, fmt.Errorf("invalid patch path %q", path)
	}

	deprecated := true
	if strings.HasPrefix(path, specPrefix) {
		path = path[len(specPrefix)-1:]
		deprecated = false
	} else if path == "/spec" {
		return nil, false, fmt.Errorf("patch path %q addresses the whole spec", path)
	}

	raw := strings.Split(strings.TrimPrefix(path, "/"), "/")
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		if s == "" {
			return nil, false, fmt.Errorf("invalid patch path %q", path)
		}
		// JSON Pointer escaping, RFC 6901.
		s = strings.ReplaceAll(s, "~1", "/")
		s = strings.ReplaceAll(s, "~0", "~")
		segments = append(segments, s)
	}
	return segments, deprecated, nil
}

// ApplyPatches applies JSON Patch operations to a spec document in place.
// Returned warnings flag deprecated path forms; the first invalid operation
// aborts with an error.
func ApplyPatches(spec map[string]interface{}, patches []PatchOp) ([]string, error) {
	var warnings []string

	for _, patch := range patches {
		segments, deprecated, err := splitPath(patch.Path)
		if err != nil {
			return warnings, err
		}
		if deprecated {
			warnings = append(warnings,
				fmt.Sprintf("patch path %q should be addressed as %q", patch.Path, "/spec"+patch.Path))
		}

		switch patch.Op {
		case "add", "replace":
			if err := setPath(spec, segments, patch.Value, patch.Op == "add"); err != nil {
				return warnings, err
			}
		case "remove":
			if err := removePath(spec, segments); err != nil {
				return warnings, err
			}
		default:
			return warnings, fmt.Errorf("unsupported patch op %q", patch.Op)
		}
	}

	return warnings, nil
}

// setPath writes a value at the segment path. An add creates missing
// intermediate objects; a replace requires the target to already exist.
func setPath(doc map[string]interface{}, segments []string, value interface{}, create bool) error {
	current := doc
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment]
		if !ok {
			if !create {
				return fmt.Errorf("patch path segment %q does not exist", segment)
			}
			child := map[string]interface{}{}
			current[segment] = child
			current = child
			continue
		}
		child, ok := next.(map[string]interface{})
		if !ok {
			return fmt.Errorf("patch path segment %q is not an object", segment)
		}
		current = child
	}

	last := segments[len(segments)-1]
	if !create {
		if _, ok := current[last]; !ok {
			return fmt.Errorf("replace target %q does not exist", last)
		}
	}
	current[last] = value
	return nil
}

func removePath(doc map[string]interface{}, segments []string) error {
	current := doc
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]interface{})
		if !ok {
			return fmt.Errorf("patch path segment %q does not exist", segment)
		}
		current = next
	}

	last := segments[len(segments)-1]
	if _, ok := current[last]; !ok {
		return fmt.Errorf("remove target %q does not exist", last)
	}
	delete(current, last)
	return nil
}
