package report

import (
	"context"
	"fmt"

	"github.com/Sternrassler/netbox-inventory/pkg/aggregate"
	"github.com/Sternrassler/netbox-inventory/pkg/pagination"
)

// SearchLimit is the number of results shown per resource.
const SearchLimit = 5

// Search runs a free-text query against every searchable resource. A
// resource whose query fails is reported as a failure line; the others are
// still shown.
func (rp *Reporter) Search(ctx context.Context, term string) (*Report, error) {
	var resources []*Resource
	var branches []aggregate.Branch
	for _, res := range registry {
		if res.Search == nil {
			continue
		}
		resources = append(resources, res)
		branches = append(branches, aggregate.Branch{
			Name: res.Title,
			Ref:  pagination.NewRef(res.Path, "q", term),
		})
	}

	results, err := rp.agg.FanOut(ctx, branches, SearchLimit)
	if err != nil {
		return nil, err
	}

	rep := newReport(fmt.Sprintf("Search: %q", term))
	found := 0
	for i, br := range results {
		res := resources[i]
		if br.Err != nil {
			rep.degrade(res.Title, br.Err)
			continue
		}
		if len(br.Result.Records) == 0 {
			continue
		}
		found += len(br.Result.Records)
		s := rep.Section(fmt.Sprintf("%s (%d)", res.Title, len(br.Result.Records)), headersOf(res.Search)...)
		for _, rec := range br.Result.Records {
			s.AddRow(rowOf(res.Search, rec)...)
		}
	}

	summary := &Section{}
	if found == 0 {
		summary.AddLine("No results for %q", term)
	} else {
		summary.AddLine("%d result(s) found", found)
	}
	rep.Sections = append([]*Section{summary}, rep.Sections...)
	return rep, nil
}
