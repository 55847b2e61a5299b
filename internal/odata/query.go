package odata

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidQuery wraps every query option parsing failure.
var ErrInvalidQuery = errors.New("invalid query")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}

// Options bounds what a client may ask for.
type Options struct {
	// MaxTop caps $top when > 0.
	MaxTop int
	// MaxNodeCount caps the $filter tree size when > 0.
	MaxNodeCount int
}

type OrderBy struct {
	Property string
	Desc     bool
}

// Query is the parsed form of the OData system query options.
type Query struct {
	Top     *int
	Skip    int
	Filter  Node
	Select  []string
	OrderBy []OrderBy
	Expand  []string
	Count   bool
}

// Expands reports whether nav was requested with $expand.
func (q *Query) Expands(nav string) bool {
	if q == nil {
		return false
	}
	for _, e := range q.Expand {
		if strings.EqualFold(e, nav) {
			return true
		}
	}
	return false
}

var knownOptions = map[string]bool{
	"$top": true, "$skip": true, "$filter": true, "$select": true,
	"$orderby": true, "$expand": true, "$count": true, "$format": true,
}

// ParseQuery parses the system query options in values against et.
// Parameters not starting with "$" are left to the caller.
func ParseQuery(values url.Values, et *EntityType, opts Options) (*Query, error) {
	q := &Query{}
	for key := range values {
		if strings.HasPrefix(key, "$") && !knownOptions[strings.ToLower(key)] {
			return nil, invalidf("unsupported query option %q", key)
		}
	}
	get := func(name string) (string, bool) {
		for key, v := range values {
			if strings.EqualFold(key, name) && len(v) > 0 {
				return strings.TrimSpace(v[0]), true
			}
		}
		return "", false
	}

	if v, ok := get("$top"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, invalidf("$top must be a non-negative integer")
		}
		if opts.MaxTop > 0 && n > opts.MaxTop {
			return nil, invalidf("$top %d exceeds the maximum of %d", n, opts.MaxTop)
		}
		q.Top = &n
	}
	if v, ok := get("$skip"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, invalidf("$skip must be a non-negative integer")
		}
		q.Skip = n
	}
	if v, ok := get("$count"); ok {
		switch strings.ToLower(v) {
		case "true":
			q.Count = true
		case "false":
		default:
			return nil, invalidf("$count must be true or false")
		}
	}
	if v, ok := get("$filter"); ok && v != "" {
		n, err := ParseFilter(v, et, opts.MaxNodeCount)
		if err != nil {
			return nil, err
		}
		q.Filter = n
	}
	if v, ok := get("$select"); ok && v != "" && v != "*" {
		for _, name := range splitOption(v) {
			p, found := et.Property(name)
			if !found {
				return nil, invalidf("$select: unknown property %q", name)
			}
			q.Select = append(q.Select, p.Name)
		}
	}
	if v, ok := get("$orderby"); ok && v != "" {
		for _, item := range splitOption(v) {
			fields := strings.Fields(item)
			if len(fields) > 2 {
				return nil, invalidf("$orderby: malformed item %q", item)
			}
			p, found := et.Property(fields[0])
			if !found {
				return nil, invalidf("$orderby: unknown property %q", fields[0])
			}
			ob := OrderBy{Property: p.Name}
			if len(fields) == 2 {
				switch strings.ToLower(fields[1]) {
				case "asc":
				case "desc":
					ob.Desc = true
				default:
					return nil, invalidf("$orderby: direction must be asc or desc")
				}
			}
			q.OrderBy = append(q.OrderBy, ob)
		}
	}
	if v, ok := get("$expand"); ok && v != "" {
		for _, name := range splitOption(v) {
			if strings.ContainsAny(name, "(/") {
				return nil, invalidf("$expand: nested options are not supported")
			}
			nav, found := et.Navigation(name)
			if !found {
				return nil, invalidf("$expand: unknown navigation property %q", name)
			}
			q.Expand = append(q.Expand, nav.Name)
		}
	}
	return q, nil
}

func splitOption(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
