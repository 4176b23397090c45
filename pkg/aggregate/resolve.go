package aggregate

import (
	"context"
	"net/url"

	"github.com/Sternrassler/netbox-inventory/pkg/cache"
	"github.com/Sternrassler/netbox-inventory/pkg/client"
	"github.com/Sternrassler/netbox-inventory/pkg/flatten"
	"github.com/Sternrassler/netbox-inventory/pkg/pagination"
	"github.com/Sternrassler/netbox-inventory/pkg/record"
)

// Template names the collection a foreign key points into, e.g.
// Template{Path: "dcim/device-types/"}. Param is the filter carrying the
// referenced id and defaults to "id".
type Template struct {
	Path  string
	Param string
}

// Resolve follows rec's foreign key fkField (a dotted path) into the
// template collection with a single-record lookup. It returns nil without
// error, and without a request when possible, when the field is missing or
// null, or when the reference resolves to nothing or to a 404.
func (a *Aggregator) Resolve(ctx context.Context, rec *record.Record, fkField string, tmpl Template) (*record.Record, error) {
	id, ok := ForeignKey(rec, fkField)
	if !ok {
		resolvesTotal.WithLabelValues("absent").Inc()
		return nil, nil
	}
	param := tmpl.Param
	if param == "" {
		param = "id"
	}

	ref := pagination.CollectionRef{Path: tmpl.Path, Query: url.Values{param: {id}}}
	key := cache.CacheKey{Endpoint: tmpl.Path, ID: id}
	if param != "id" {
		key = cache.CacheKey{Endpoint: tmpl.Path, QueryParams: ref.Query}
	}

	target, err := a.lookup(ctx, key, ref)
	switch {
	case err != nil:
		resolvesTotal.WithLabelValues("failed").Inc()
		return nil, err
	case target == nil:
		resolvesTotal.WithLabelValues("absent").Inc()
	default:
		resolvesTotal.WithLabelValues("found").Inc()
	}
	return target, nil
}

// Lookup returns the first record of ref, or nil when the collection is
// empty or not found.
func (a *Aggregator) Lookup(ctx context.Context, ref pagination.CollectionRef) (*record.Record, error) {
	return a.lookup(ctx, cache.CacheKey{Endpoint: ref.Path, QueryParams: ref.Query}, ref)
}

func (a *Aggregator) lookup(ctx context.Context, key cache.CacheKey, ref pagination.CollectionRef) (*record.Record, error) {
	load := func(ctx context.Context) (*record.Record, error) {
		res, err := a.drainer.Drain(ctx, ref, 1)
		if err != nil {
			if client.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		if len(res.Records) == 0 {
			return nil, nil
		}
		return res.Records[0], nil
	}
	if a.lookups == nil {
		return load(ctx)
	}
	return a.lookups.GetOrLoad(ctx, key, load)
}

// ForeignKey extracts the referenced id from a field that holds either a
// nested record with an id or a bare id scalar.
func ForeignKey(rec *record.Record, field string) (string, bool) {
	if rec == nil {
		return "", false
	}
	v, ok := rec.Lookup(field)
	if !ok || v.IsNull() {
		return "", false
	}
	if nested := v.Record(); nested != nil {
		return nested.ID()
	}
	if !v.IsScalar() {
		return "", false
	}
	id := v.Text()
	if id == "" || id == flatten.NotAvailable {
		return "", false
	}
	return id, true
}
