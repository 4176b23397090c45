package pagination

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Sternrassler/netbox-inventory/pkg/client"
	"github.com/Sternrassler/netbox-inventory/pkg/record"
)

// Page is one batch of records and its continuation reference. A page with
// an empty Next is the last page of its collection.
type Page struct {
	Records []*record.Record
	Next    string

	// Count is the server's total-count hint, valid when HasCount is set.
	Count    int
	HasCount bool
}

// ParsePage interprets a decoded response body. It accepts the NetBox page
// envelope and, for endpoints that are not paginated, a bare list of records.
func ParsePage(v record.Value) (*Page, error) {
	switch v.Kind() {
	case record.KindList:
		recs, err := recordsOf(v)
		if err != nil {
			return nil, err
		}
		return &Page{Records: recs}, nil
	case record.KindRecord:
	default:
		return nil, malformed("expected a page object, got %s", v.Kind())
	}

	env := v.Record()
	results, ok := env.Get("results")
	if !ok {
		return nil, malformed("page has no results field")
	}
	if results.IsNull() {
		results = record.List()
	}
	if results.Kind() != record.KindList {
		return nil, malformed("results is %s, not a list", results.Kind())
	}
	recs, err := recordsOf(results)
	if err != nil {
		return nil, err
	}
	page := &Page{Records: recs}

	if next, ok := env.Get("next"); ok && !next.IsNull() {
		s, isStr := next.Str()
		if !isStr {
			return nil, malformed("next is %s, not a string", next.Kind())
		}
		page.Next = strings.TrimSpace(s)
	}

	if count, ok := env.Get("count"); ok && !count.IsNull() {
		n, isInt := count.Int64()
		if !isInt || n < 0 {
			return nil, malformed("count %q is not a non-negative integer", count.Text())
		}
		page.Count = int(n)
		page.HasCount = true
	}

	return page, nil
}

// ContinuationQuery builds the query for the page after a continuation
// reference. The original query is kept and every parameter carried by the
// continuation URL's query component replaces the original's value. A
// continuation that is not URL-shaped is passed through opaquely as
// cursorParam=<token>.
func ContinuationQuery(original url.Values, next, cursorParam string) url.Values {
	q := cloneValues(original)
	u, ok := continuationURL(next)
	if !ok {
		if cursorParam == "" {
			cursorParam = DefaultCursorParam
		}
		q.Set(cursorParam, next)
		return q
	}
	for key, vals := range u.Query() {
		q[key] = append([]string(nil), vals...)
	}
	return q
}

// continuationURL parses next when it is an absolute http(s) URL with a
// host, a path starting with "/", or carries a query. Anything else, such as
// "page:2", is an opaque token.
func continuationURL(next string) (*url.URL, bool) {
	u, err := url.Parse(next)
	if err != nil {
		return nil, false
	}
	switch {
	case (u.Scheme == "http" || u.Scheme == "https") && u.Host != "":
		return u, true
	case strings.HasPrefix(next, "/"), strings.Contains(next, "?"):
		return u, true
	}
	return nil, false
}

func recordsOf(list record.Value) ([]*record.Record, error) {
	items := list.List()
	recs := make([]*record.Record, 0, len(items))
	for i, item := range items {
		rec := item.Record()
		if rec == nil {
			return nil, malformed("result %d is %s, not an object", i, item.Kind())
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func malformed(format string, args ...any) error {
	return &client.TransportError{
		Kind: client.KindMalformed,
		Err:  fmt.Errorf(format, args...),
	}
}
