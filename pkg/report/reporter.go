// Package report turns drained NetBox collections into tables, summaries
// and exports. Resources are described declaratively (see Resources); views
// combine drains, counts and lookups from the aggregate package.
package report

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/netbox-inventory/pkg/aggregate"
	"github.com/Sternrassler/netbox-inventory/pkg/flatten"
	"github.com/Sternrassler/netbox-inventory/pkg/pagination"
	"github.com/Sternrassler/netbox-inventory/pkg/record"
)

// StatusSource fetches the NetBox status document. *client.Client
// implements it.
type StatusSource interface {
	Status(ctx context.Context) (*record.Record, error)
}

// Reporter builds views.
type Reporter struct {
	status StatusSource
	agg    *aggregate.Aggregator
	drain  aggregate.Drainer
	logger zerolog.Logger
}

// New creates a reporter. drainer must be the one agg was built with.
func New(status StatusSource, drainer aggregate.Drainer, agg *aggregate.Aggregator) *Reporter {
	return &Reporter{
		status: status,
		agg:    agg,
		drain:  drainer,
		logger: log.With().Str("component", "report").Logger(),
	}
}

// Filters is a set of name=value collection filters.
type Filters map[string]string

// ref builds a collection reference for a resource after checking the
// filters against its vocabulary.
func (r *Resource) ref(filters Filters) (pagination.CollectionRef, error) {
	q := url.Values{}
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !r.AllowsFilter(name) {
			return pagination.CollectionRef{}, fmt.Errorf("%w %q for %s (allowed: %v)", ErrUnsupportedFilter, name, r.Name, r.Filters)
		}
		q.Set(name, filters[name])
	}
	return pagination.CollectionRef{Path: r.Path, Query: q}, nil
}

// List renders every record of a resource matching filters.
func (rp *Reporter) List(ctx context.Context, resource string, filters Filters) (*Report, error) {
	res, err := Lookup(resource)
	if err != nil {
		return nil, err
	}
	ref, err := res.ref(filters)
	if err != nil {
		return nil, err
	}

	result, err := rp.drain.Drain(ctx, ref, 0)
	if err != nil {
		return nil, err
	}

	rep := newReport(res.Title)
	s := rep.Section(fmt.Sprintf("%s (%d found)", res.Title, len(result.Records)), res.Headers()...)
	for _, rec := range result.Records {
		s.AddRow(res.Row(rec)...)
	}
	if len(result.Records) == 0 {
		s.AddLine("No %s found", res.Name)
	}
	if result.Truncated {
		s.AddLine("Showing %d of %d records (cap reached)", len(result.Records), result.Size())
	}
	return rep, nil
}

// find resolves a record by numeric id or by the resource key field.
func (rp *Reporter) find(ctx context.Context, res *Resource, nameOrID string) (*record.Record, error) {
	param := res.Key
	if _, err := strconv.Atoi(nameOrID); err == nil {
		param = "id"
	}
	rec, err := rp.agg.Lookup(ctx, pagination.NewRef(res.Path, param, nameOrID))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &NotFoundError{Resource: res.Name, Key: nameOrID}
	}
	return rec, nil
}

// Details renders every field of one record followed by its related
// collections.
func (rp *Reporter) Details(ctx context.Context, resource, nameOrID string) (*Report, error) {
	res, err := Lookup(resource)
	if err != nil {
		return nil, err
	}
	rec, err := rp.find(ctx, res, nameOrID)
	if err != nil {
		return nil, err
	}

	rep := newReport(fmt.Sprintf("%s: %s", res.Title, nameOrID))
	attrs := rep.Section("Attributes", "Attribute", "Value")
	for _, cell := range flatten.Flatten(rec, nil).Cells() {
		attrs.AddRow(cell.Column, cell.Value)
	}

	id, _ := rec.ID()
	branches := make([]aggregate.Branch, len(res.Related))
	for i, rel := range res.Related {
		branches[i] = aggregate.Branch{
			Name: rel.Title,
			Ref:  pagination.NewRef(mustLookup(rel.Resource).Path, rel.Filter, id),
		}
	}
	results, err := rp.agg.FanOut(ctx, branches, 0)
	if err != nil {
		return nil, err
	}
	for i, br := range results {
		related := mustLookup(res.Related[i].Resource)
		s := rep.Section(br.Name, related.Headers()...)
		if br.Err != nil {
			s.AddLine("%s: %s", br.Name, rep.degrade(br.Name, br.Err))
			continue
		}
		for _, r := range br.Result.Records {
			s.AddRow(related.Row(r)...)
		}
		if len(br.Result.Records) == 0 {
			s.AddLine("No %s", related.Name)
		}
	}
	return rep, nil
}
