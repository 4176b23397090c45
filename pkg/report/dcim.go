package report

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/netbox-inventory/pkg/aggregate"
	"github.com/Sternrassler/netbox-inventory/pkg/flatten"
	"github.com/Sternrassler/netbox-inventory/pkg/pagination"
	"github.com/Sternrassler/netbox-inventory/pkg/record"
)

// FreeUnit marks an unoccupied rack unit.
const FreeUnit = "free"

var deviceTypes = aggregate.Template{Path: "dcim/device-types/"}

// SiteSummary shows a site's attributes and the size of its collections.
func (rp *Reporter) SiteSummary(ctx context.Context, name string) (*Report, error) {
	site, err := rp.find(ctx, mustLookup("sites"), name)
	if err != nil {
		return nil, err
	}
	id, _ := site.ID()

	rep := newReport(fmt.Sprintf("Site: %s", flatten.Reduce(record.Object(site))))
	info := rep.Section("Attributes", "Attribute", "Value")
	for _, c := range []Column{
		col("ID", "id"), col("Name", "name"), col("Region", "region"),
		col("Status", "status.label"), col("Facility", "facility"), col("ASN", "asn"),
		col("Time Zone", "time_zone"), col("Description", "description"),
	} {
		info.AddRow(c.Header, c.Value(site))
	}

	var branches []aggregate.Branch
	for _, name := range []string{"devices", "racks", "locations", "cables", "prefixes"} {
		res := mustLookup(name)
		branches = append(branches, aggregate.Branch{Name: res.Title, Ref: pagination.NewRef(res.Path, "site_id", id)})
	}
	counts, err := rp.agg.CountEach(ctx, branches)
	if err != nil {
		return nil, err
	}
	stats := rep.Section("Statistics", "Object", "Count")
	for _, c := range counts.Counts {
		stats.AddRow(c.Name, rep.countText(c))
	}
	return rep, nil
}

// RackElevation shows the occupant of every unit of a rack, top unit first.
// Device heights come from their device types; full-depth devices fill both
// faces.
func (rp *Reporter) RackElevation(ctx context.Context, nameOrID string) (*Report, error) {
	rack, err := rp.find(ctx, mustLookup("racks"), nameOrID)
	if err != nil {
		return nil, err
	}
	id, _ := rack.ID()
	height := 0
	if v, ok := rack.Get("u_height"); ok {
		if n, ok := v.Int64(); ok {
			height = int(n)
		}
	}

	devices, err := rp.drain.Drain(ctx, pagination.NewRef(mustLookup("devices").Path, "rack_id", id), 0)
	if err != nil {
		return nil, err
	}

	rep := newReport(fmt.Sprintf("Rack elevation: %s (%dU)", flatten.Reduce(record.Object(rack)), height))
	place := rep.Section("")
	place.AddLine("Site: %s", col("", "site").Value(rack))
	if loc, ok := rack.Get("location"); ok && !loc.IsNull() {
		place.AddLine("Location: %s", flatten.Reduce(loc))
	}

	front := make(map[int]string)
	rear := make(map[int]string)
	for _, dev := range devices.Records {
		pos, ok := position(dev)
		if !ok {
			continue
		}
		units, fullDepth, model := 1, false, ""
		dt, err := rp.agg.Resolve(ctx, dev, "device_type", deviceTypes)
		switch {
		case err != nil:
			if isFatal(err) {
				return nil, err
			}
			model = rep.degrade("device type of "+dev.Str("name"), err)
		case dt != nil:
			if v, ok := dt.Get("u_height"); ok {
				if n, ok := v.Int64(); ok && n > 0 {
					units = int(n)
				}
			}
			if v, ok := dt.Get("is_full_depth"); ok {
				fullDepth, _ = v.Bool()
			}
			model = dt.Str("model")
		}

		label := flatten.Reduce(record.Object(dev))
		if model != "" {
			label += " (" + model + ")"
		}
		face := faceOf(dev)
		for u := pos; u < pos+units; u++ {
			if face != "rear" || fullDepth {
				front[u] = label
			}
			if face == "rear" || fullDepth {
				rear[u] = label
			}
		}
	}

	s := rep.Section("Units", "Unit", "Front", "Rear")
	for u := height; u >= 1; u-- {
		s.AddRow(fmt.Sprintf("U%2d", u), occupantLabel(front, u), occupantLabel(rear, u))
	}
	return rep, nil
}

// position returns the lowest unit a device occupies. Fractional positions
// round down.
func position(dev *record.Record) (int, bool) {
	v, ok := dev.Get("position")
	if !ok || v.IsNull() {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.Text(), 64)
	if err != nil || f < 1 {
		return 0, false
	}
	return int(f), true
}

func faceOf(dev *record.Record) string {
	v, ok := dev.Get("face")
	if !ok || v.IsNull() {
		return "front"
	}
	if r := v.Record(); r != nil {
		return strings.ToLower(r.Str("value"))
	}
	return strings.ToLower(v.Text())
}

func occupantLabel(m map[int]string, u int) string {
	if label, ok := m[u]; ok {
		return label
	}
	return FreeUnit
}

// DeviceInterfaces lists a device's interfaces with their IP addresses.
func (rp *Reporter) DeviceInterfaces(ctx context.Context, nameOrID string) (*Report, error) {
	device, err := rp.find(ctx, mustLookup("devices"), nameOrID)
	if err != nil {
		return nil, err
	}
	id, _ := device.ID()

	ifaces, err := rp.drain.Drain(ctx, pagination.NewRef(mustLookup("interfaces").Path, "device_id", id), 0)
	if err != nil {
		return nil, err
	}

	addresses := mustLookup("ip-addresses")
	branches := make([]aggregate.Branch, len(ifaces.Records))
	for i, iface := range ifaces.Records {
		iid, _ := iface.ID()
		branches[i] = aggregate.Branch{Name: iface.Str("name"), Ref: pagination.NewRef(addresses.Path, "interface_id", iid)}
	}
	results, err := rp.agg.FanOut(ctx, branches, 0)
	if err != nil {
		return nil, err
	}

	rep := newReport(fmt.Sprintf("Interfaces of %s", flatten.Reduce(record.Object(device))))
	s := rep.Section(fmt.Sprintf("Interfaces (%d found)", len(ifaces.Records)),
		"Name", "Type", "Enabled", "IP Addresses", "Connected To", "Description")
	cols := []Column{
		col("Name", "name"), col("Type", "type.label"), col("Enabled", "enabled"),
		col("Connected To", "connected_endpoints"), col("Description", "description"),
	}
	for i, iface := range ifaces.Records {
		v := rowOf(cols, iface)
		s.AddRow(v[0], v[1], v[2], interfaceAddresses(rep, results[i]), v[3], v[4])
	}
	if len(ifaces.Records) == 0 {
		s.AddLine("No interfaces found")
	}
	return rep, nil
}

func interfaceAddresses(rep *Report, br aggregate.BranchResult) string {
	if br.Err != nil {
		return rep.degrade("addresses of "+br.Name, br.Err)
	}
	var addrs []string
	for _, ip := range br.Result.Records {
		addrs = append(addrs, ip.Str("address"))
	}
	if len(addrs) == 0 {
		return flatten.NotAvailable
	}
	return strings.Join(addrs, "\n")
}
