package report

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Sternrassler/netbox-inventory/pkg/aggregate"
	"github.com/Sternrassler/netbox-inventory/pkg/flatten"
	"github.com/Sternrassler/netbox-inventory/pkg/pagination"
	"github.com/Sternrassler/netbox-inventory/pkg/record"
)

// statusObjects are the collections counted by Status.
var statusObjects = []string{
	"sites", "devices", "racks", "interfaces", "cables",
	"prefixes", "ip-addresses", "vlans", "vrfs", "circuits", "providers",
}

// Status shows the server versions and the size of the main collections.
func (rp *Reporter) Status(ctx context.Context) (*Report, error) {
	doc, err := rp.status.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}

	rep := newReport("NetBox status")
	info := rep.Section("Instance", "Attribute", "Value")
	info.AddRow("Connection", "OK")
	for _, field := range []string{"netbox-version", "python-version", "django-version", "rq-workers-running"} {
		if v, ok := doc.Get(field); ok && !v.IsNull() {
			info.AddRow(field, flatten.Reduce(v))
		}
	}

	branches := make([]aggregate.Branch, len(statusObjects))
	for i, name := range statusObjects {
		res := mustLookup(name)
		branches[i] = aggregate.Branch{Name: res.Title, Ref: pagination.CollectionRef{Path: res.Path}}
	}
	counts, err := rp.agg.CountEach(ctx, branches)
	if err != nil {
		return nil, err
	}
	s := rep.Section("Objects", "Object", "Count")
	for _, c := range counts.Counts {
		s.AddRow(c.Name, rep.countText(c))
	}
	return rep, nil
}

// countText renders a count, degrading the report when it is unknown.
func (r *Report) countText(c aggregate.Count) string {
	if c.Err != nil {
		return r.degrade(c.Name, c.Err)
	}
	return strconv.Itoa(c.Count)
}

// Validate runs basic data quality checks.
func (rp *Reporter) Validate(ctx context.Context) (*Report, error) {
	rep := newReport("Data validation")
	s := rep.Section("Issues")
	issues := 0

	check := func(label string, n int, err error) error {
		switch {
		case err != nil:
			if isFatal(err) {
				return err
			}
			s.AddLine("%s: %s", label, rep.degrade(label, err))
		case n > 0:
			issues++
			s.AddLine("%d %s", n, label)
		}
		return nil
	}

	n, err := rp.devicesWithoutPrimaryIP(ctx)
	if err := check("devices without primary IP", n, err); err != nil {
		return nil, err
	}

	n, err = rp.collectionSize(ctx, pagination.NewRef(mustLookup("interfaces").Path, "connected", "false"))
	if err := check("unconnected interfaces", n, err); err != nil {
		return nil, err
	}

	n, err = rp.countZero(ctx, rep, "racks", "devices", "rack_id")
	if err := check("empty racks", n, err); err != nil {
		return nil, err
	}

	n, err = rp.countZero(ctx, rep, "circuits", "circuit-terminations", "circuit_id")
	if err := check("circuits without terminations", n, err); err != nil {
		return nil, err
	}

	if issues == 0 && !rep.Degraded() {
		s.AddLine("No issues found")
	}
	return rep, nil
}

func (rp *Reporter) devicesWithoutPrimaryIP(ctx context.Context) (int, error) {
	res, err := rp.drain.Drain(ctx, pagination.CollectionRef{Path: mustLookup("devices").Path}, 0)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range res.Records {
		if isNull(rec, "primary_ip4") && isNull(rec, "primary_ip6") {
			n++
		}
	}
	return n, nil
}

func (rp *Reporter) collectionSize(ctx context.Context, ref pagination.CollectionRef) (int, error) {
	res, err := rp.drain.Drain(ctx, ref, 0)
	if err != nil {
		return 0, err
	}
	return res.Size(), nil
}

// countZero drains the parent resource and counts the parents whose child
// collection (filtered by fkFilter) is empty. Parents whose count failed are
// recorded as failures and not counted.
func (rp *Reporter) countZero(ctx context.Context, rep *Report, parent, child, fkFilter string) (int, error) {
	parents, err := rp.drain.Drain(ctx, pagination.CollectionRef{Path: mustLookup(parent).Path}, 0)
	if err != nil {
		return 0, err
	}
	counts, err := rp.agg.CountBy(ctx, pagination.CollectionRef{Path: mustLookup(child).Path}, fkFilter,
		aggregate.CandidatesFrom(parents.Records))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range counts.Counts {
		if c.Err != nil {
			rep.degrade(fmt.Sprintf("%s %s", parent, c.Name), c.Err)
			continue
		}
		if c.Count == 0 {
			n++
		}
	}
	return n, nil
}

func isNull(rec *record.Record, field string) bool {
	v, ok := rec.Get(field)
	return !ok || v.IsNull()
}
