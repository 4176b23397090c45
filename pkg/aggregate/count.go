package aggregate

import (
	"context"
	"sort"

	"github.com/Sternrassler/netbox-inventory/pkg/flatten"
	"github.com/Sternrassler/netbox-inventory/pkg/pagination"
	"github.com/Sternrassler/netbox-inventory/pkg/record"
)

// Unknown is the count reported for a degraded branch.
const Unknown = -1

// Candidate is one group of a count: a provider, a circuit type, a rack.
type Candidate struct {
	ID   string
	Name string
}

// CandidatesFrom turns records into candidates named the way flatten
// reduces a nested record (name, display, label, id). Records without an id
// are skipped.
func CandidatesFrom(recs []*record.Record) []Candidate {
	out := make([]Candidate, 0, len(recs))
	for _, rec := range recs {
		id, ok := rec.ID()
		if !ok {
			continue
		}
		out = append(out, Candidate{ID: id, Name: flatten.Reduce(record.Object(rec))})
	}
	return out
}

// Count is the size of one candidate's collection, or Unknown with Err set.
type Count struct {
	Candidate
	Count int
	Err   error
}

// Known reports whether the count is available.
func (c Count) Known() bool {
	return c.Err == nil && c.Count != Unknown
}

// CountResult holds counts in candidate order and the degraded subset.
type CountResult struct {
	Counts   []Count
	Degraded []Count
}

// Get returns the count for a candidate id.
func (r *CountResult) Get(id string) (Count, bool) {
	for _, c := range r.Counts {
		if c.ID == id {
			return c, true
		}
	}
	return Count{}, false
}

// CountBy counts, for every candidate, the records of ref whose groupField
// equals the candidate id. Output order is candidate order.
func (a *Aggregator) CountBy(ctx context.Context, ref pagination.CollectionRef, groupField string, candidates []Candidate) (*CountResult, error) {
	branches := make([]Branch, len(candidates))
	for i, c := range candidates {
		branches[i] = Branch{Name: c.Name, Ref: ref.With(groupField, c.ID)}
	}
	results, err := a.FanOut(ctx, branches, 0)
	if err != nil {
		return nil, err
	}

	out := &CountResult{Counts: make([]Count, len(candidates))}
	for i, r := range results {
		out.Counts[i] = countOf(candidates[i], r)
		if out.Counts[i].Err != nil {
			out.Degraded = append(out.Degraded, out.Counts[i])
		}
	}

	a.logger.Info().
		Str("collection", ref.String()).
		Str("group_field", groupField).
		Int("candidates", len(candidates)).
		Int("degraded", len(out.Degraded)).
		Msg("Count by group complete")

	return out, nil
}

// CountEach counts independent collections, one per branch; the branch name
// is the candidate name.
func (a *Aggregator) CountEach(ctx context.Context, branches []Branch) (*CountResult, error) {
	results, err := a.FanOut(ctx, branches, 0)
	if err != nil {
		return nil, err
	}

	out := &CountResult{Counts: make([]Count, len(branches))}
	for i, r := range results {
		out.Counts[i] = countOf(Candidate{ID: r.Name, Name: r.Name}, r)
		if out.Counts[i].Err != nil {
			out.Degraded = append(out.Degraded, out.Counts[i])
		}
	}
	return out, nil
}

func countOf(c Candidate, r BranchResult) Count {
	if r.Err != nil {
		return Count{Candidate: c, Count: Unknown, Err: r.Err}
	}
	return Count{Candidate: c, Count: r.Result.Size()}
}

// SortByCount orders counts by count descending, ties by name ascending,
// unknown counts last. The input is not modified.
func SortByCount(counts []Count) []Count {
	out := append([]Count(nil), counts...)
	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := out[i].Known(), out[j].Known()
		if ki != kj {
			return ki
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Tally groups already drained records by the reduced value of field (a
// dotted path) and returns the groups sorted by SortByCount. Records
// without the field count under flatten.NotAvailable.
func Tally(recs []*record.Record, field string) []Count {
	index := make(map[string]int)
	var counts []Count
	for _, rec := range recs {
		key := flatten.NotAvailable
		if v, ok := rec.Lookup(field); ok {
			key = flatten.Reduce(v)
		}
		i, seen := index[key]
		if !seen {
			i = len(counts)
			index[key] = i
			counts = append(counts, Count{Candidate: Candidate{ID: key, Name: key}})
		}
		counts[i].Count++
	}
	return SortByCount(counts)
}
