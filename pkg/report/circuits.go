package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sternrassler/netbox-inventory/pkg/aggregate"
	"github.com/Sternrassler/netbox-inventory/pkg/flatten"
	"github.com/Sternrassler/netbox-inventory/pkg/pagination"
	"github.com/Sternrassler/netbox-inventory/pkg/record"
)

const (
	// TopProviders is the number of providers listed by CircuitStats.
	TopProviders = 10

	// SiteSeparator joins the termination sites of a circuit.
	SiteSeparator = " <-> "
)

// countCircuitsBy drains the parent resource and counts its circuits using
// the given circuit filter.
func (rp *Reporter) countCircuitsBy(ctx context.Context, parent, filter string) ([]*record.Record, *aggregate.CountResult, error) {
	parents, err := rp.drain.Drain(ctx, pagination.CollectionRef{Path: mustLookup(parent).Path}, 0)
	if err != nil {
		return nil, nil, err
	}
	counts, err := rp.agg.CountBy(ctx, pagination.CollectionRef{Path: mustLookup("circuits").Path}, filter,
		aggregate.CandidatesFrom(parents.Records))
	if err != nil {
		return nil, nil, err
	}
	return parents.Records, counts, nil
}

// Providers lists providers with their circuit count.
func (rp *Reporter) Providers(ctx context.Context) (*Report, error) {
	return rp.withCircuitCounts(ctx, "providers", "provider_id")
}

// CircuitTypes lists circuit types with their circuit count.
func (rp *Reporter) CircuitTypes(ctx context.Context) (*Report, error) {
	return rp.withCircuitCounts(ctx, "circuit-types", "type_id")
}

func (rp *Reporter) withCircuitCounts(ctx context.Context, resource, filter string) (*Report, error) {
	res := mustLookup(resource)
	recs, counts, err := rp.countCircuitsBy(ctx, resource, filter)
	if err != nil {
		return nil, err
	}

	rep := newReport(res.Title)
	s := rep.Section(fmt.Sprintf("%s (%d found)", res.Title, len(recs)), append(res.Headers(), "Circuits")...)
	for _, rec := range recs {
		row := res.Row(rec)
		id, _ := rec.ID()
		count := flatten.NotAvailable
		if c, ok := counts.Get(id); ok {
			count = rep.countText(c)
		}
		s.AddRow(append(row, count)...)
	}
	if len(recs) == 0 {
		s.AddLine("No %s found", res.Name)
	}
	return rep, nil
}

// CircuitStats shows the circuit distribution by status, provider and type.
// Groups are sorted by count descending with ties broken by name.
func (rp *Reporter) CircuitStats(ctx context.Context) (*Report, error) {
	circuits, err := rp.drain.Drain(ctx, pagination.CollectionRef{Path: mustLookup("circuits").Path}, 0)
	if err != nil {
		return nil, err
	}

	rep := newReport("Circuit statistics")

	byStatus := rep.Section("By status", "Status", "Circuits")
	for _, c := range aggregate.Tally(circuits.Records, "status.label") {
		byStatus.AddRow(c.Name, rep.countText(c))
	}

	_, providers, err := rp.countCircuitsBy(ctx, "providers", "provider_id")
	if err != nil {
		return nil, err
	}
	byProvider := rep.Section("By provider", "Provider", "Circuits")
	listed := nonEmpty(aggregate.SortByCount(providers.Counts))
	for i, c := range listed {
		if i == TopProviders {
			byProvider.AddLine("... and %d more providers", len(listed)-TopProviders)
			break
		}
		byProvider.AddRow(c.Name, rep.countText(c))
	}

	_, types, err := rp.countCircuitsBy(ctx, "circuit-types", "type_id")
	if err != nil {
		return nil, err
	}
	byType := rep.Section("By type", "Type", "Circuits")
	for _, c := range nonEmpty(aggregate.SortByCount(types.Counts)) {
		byType.AddRow(c.Name, rep.countText(c))
	}

	total := rep.Section("")
	total.AddLine("Total: %d circuits", circuits.Size())
	return rep, nil
}

// nonEmpty drops known zero counts and keeps unknown ones.
func nonEmpty(counts []aggregate.Count) []aggregate.Count {
	out := counts[:0:0]
	for _, c := range counts {
		if c.Known() && c.Count == 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ProviderCircuits lists a provider's circuits with the sites of their
// terminations.
func (rp *Reporter) ProviderCircuits(ctx context.Context, name string) (*Report, error) {
	providers := mustLookup("providers")
	provider, err := rp.find(ctx, providers, name)
	if err != nil {
		return nil, err
	}
	id, _ := provider.ID()

	circuits, err := rp.drain.Drain(ctx, pagination.NewRef(mustLookup("circuits").Path, "provider_id", id), 0)
	if err != nil {
		return nil, err
	}

	terminations := mustLookup("circuit-terminations")
	branches := make([]aggregate.Branch, len(circuits.Records))
	for i, c := range circuits.Records {
		cid, _ := c.ID()
		branches[i] = aggregate.Branch{
			Name: c.Str("cid"),
			Ref:  pagination.NewRef(terminations.Path, "circuit_id", cid),
		}
	}
	results, err := rp.agg.FanOut(ctx, branches, 0)
	if err != nil {
		return nil, err
	}

	rep := newReport(fmt.Sprintf("Provider: %s", flatten.Reduce(record.Object(provider))))
	s := rep.Section(fmt.Sprintf("Circuits (%d found)", len(circuits.Records)),
		"CID", "Type", "Status", "Sites", "Commit Rate", "Install Date")
	cols := []Column{
		col("CID", "cid"), col("Type", "type"), col("Status", "status.label"),
		{Header: "Commit Rate", Path: "commit_rate", Suffix: " kbps"},
		col("Install Date", "install_date"),
	}
	for i, c := range circuits.Records {
		v := rowOf(cols, c)
		sites := terminationSites(rep, results[i])
		s.AddRow(v[0], v[1], v[2], sites, v[3], v[4])
	}
	if len(circuits.Records) == 0 {
		s.AddLine("No circuits found for provider %q", name)
	}
	return rep, nil
}

func terminationSites(rep *Report, br aggregate.BranchResult) string {
	if br.Err != nil {
		return rep.degrade("terminations of "+br.Name, br.Err)
	}
	var sites []string
	for _, t := range br.Result.Records {
		if v, ok := t.Get("site"); ok && !v.IsNull() {
			sites = append(sites, flatten.Reduce(v))
		}
	}
	if len(sites) == 0 {
		return flatten.NotAvailable
	}
	return strings.Join(sites, SiteSeparator)
}
