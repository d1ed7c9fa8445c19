// Package filter translates a client filter specification into store query
// criteria. Building criteria is a pure function of the specification.
package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/store"
)

// Flag is a bool-like switch. Clients send either JSON booleans or the
// strings "true"/"false"; only true or "true" turns a flag on.
type Flag bool

// UnmarshalJSON accepts true, false, null and any JSON string.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("true")):
		*f = true
	case bytes.Equal(data, []byte("false")), bytes.Equal(data, []byte("null")):
		*f = false
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid flag %s: %w", data, err)
		}
		*f = ParseFlag(s)
	default:
		return fmt.Errorf("invalid flag %s: must be a boolean or \"true\"/\"false\"", data)
	}
	return nil
}

// ParseFlag interprets a query-string value. Only "true" is set.
func ParseFlag(s string) Flag {
	return Flag(s == "true")
}

// ImportanceFlags selects importance levels.
type ImportanceFlags struct {
	One   Flag `json:"one"`
	Two   Flag `json:"two"`
	Three Flag `json:"three"`
}

// StatusFlags selects statuses. Fail selects the "failed" status.
type StatusFlags struct {
	New  Flag `json:"new"`
	Done Flag `json:"done"`
	Fail Flag `json:"fail"`
}

// Spec is the client-facing filter specification.
type Spec struct {
	Txt        string          `json:"txt"`
	Importance ImportanceFlags `json:"importance"`
	Status     StatusFlags     `json:"status"`
}

// Build converts a Spec into store criteria. Statuses are emitted in the
// fixed order new, done, failed and importances in ascending order; a
// dimension with no flags set stays unconstrained (nil).
func Build(spec Spec) store.Criteria {
	var criteria store.Criteria

	if spec.Txt != "" {
		criteria.TitleContains = spec.Txt
	}

	if spec.Status.New {
		criteria.Statuses = append(criteria.Statuses, domain.StatusNew)
	}
	if spec.Status.Done {
		criteria.Statuses = append(criteria.Statuses, domain.StatusDone)
	}
	if spec.Status.Fail {
		criteria.Statuses = append(criteria.Statuses, domain.StatusFailed)
	}

	if spec.Importance.One {
		criteria.Importances = append(criteria.Importances, domain.ImportanceLow)
	}
	if spec.Importance.Two {
		criteria.Importances = append(criteria.Importances, domain.ImportanceMedium)
	}
	if spec.Importance.Three {
		criteria.Importances = append(criteria.Importances, domain.ImportanceHigh)
	}

	return criteria
}

// FromQuery reads a Spec from query parameters. Nested keys may be written
// in bracket form (importance[one]=true) or dotted form (importance.one=true).
// An optional "filter" parameter holding a JSON-encoded Spec is applied
// first and individual parameters are layered on top of it.
func FromQuery(values url.Values) (Spec, error) {
	var spec Spec

	if raw := values.Get("filter"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &spec); err != nil {
			return Spec{}, fmt.Errorf("invalid filter parameter: %w", err)
		}
	}

	if values.Has("txt") {
		spec.Txt = values.Get("txt")
	}

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		group, name, ok := splitKey(key)
		if !ok {
			continue
		}
		flag := ParseFlag(vals[0])

		switch group {
		case "importance":
			switch name {
			case "one":
				spec.Importance.One = flag
			case "two":
				spec.Importance.Two = flag
			case "three":
				spec.Importance.Three = flag
			}
		case "status":
			switch name {
			case "new":
				spec.Status.New = flag
			case "done":
				spec.Status.Done = flag
			case "fail":
				spec.Status.Fail = flag
			}
		}
	}

	return spec, nil
}

// splitKey splits "group[name]" or "group.name" into its parts.
func splitKey(key string) (group, name string, ok bool) {
	if i := strings.IndexByte(key, '['); i > 0 && strings.HasSuffix(key, "]") {
		return key[:i], key[i+1 : len(key)-1], true
	}
	if group, name, ok := strings.Cut(key, "."); ok {
		return group, name, true
	}
	return "", "", false
}
