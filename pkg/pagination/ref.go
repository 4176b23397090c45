package pagination

import (
	"net/url"
	"strings"
)

// CollectionRef identifies a queryable set of records: an API path relative
// to /api/ and its filters.
type CollectionRef struct {
	Path  string
	Query url.Values
}

// NewRef builds a reference from a path and key/value filter pairs. A
// trailing odd key is ignored.
func NewRef(path string, kv ...string) CollectionRef {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		q.Add(kv[i], kv[i+1])
	}
	return CollectionRef{Path: path, Query: q}
}

// With returns a copy of the reference with key set to value.
func (r CollectionRef) With(key, value string) CollectionRef {
	q := cloneValues(r.Query)
	q.Set(key, value)
	return CollectionRef{Path: r.Path, Query: q}
}

// String renders the reference as "path?query".
func (r CollectionRef) String() string {
	path := "/" + strings.TrimLeft(r.Path, "/")
	if len(r.Query) == 0 {
		return path
	}
	return path + "?" + r.Query.Encode()
}

func cloneValues(v url.Values) url.Values {
	cp := make(url.Values, len(v))
	for k, vals := range v {
		cp[k] = append([]string(nil), vals...)
	}
	return cp
}
