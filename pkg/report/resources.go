package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Sternrassler/netbox-inventory/pkg/flatten"
	"github.com/Sternrassler/netbox-inventory/pkg/record"
)

// Column selects one display value from a record.
type Column struct {
	Header string

	// Path is a dotted path reduced with flatten.Reduce.
	Path string

	// Suffix is appended to available values ("kbps", "U").
	Suffix string

	// Default replaces flatten.NotAvailable.
	Default string

	// Render overrides Path for values that need more than a reduction.
	Render func(rec *record.Record) string
}

// Value renders the column for rec.
func (c Column) Value(rec *record.Record) string {
	var s string
	if c.Render != nil {
		s = c.Render(rec)
	} else {
		s = flatten.NotAvailable
		if v, ok := rec.Lookup(c.Path); ok {
			s = flatten.Reduce(v)
		}
	}
	if s == flatten.NotAvailable || s == "" {
		if c.Default != "" {
			return c.Default
		}
		return flatten.NotAvailable
	}
	return s + c.Suffix
}

// Relation is a collection listed under a record's details, scoped by a
// foreign-key filter on the record's id.
type Relation struct {
	Title    string
	Resource string
	Filter   string
}

// Resource is the declarative description of one NetBox collection.
type Resource struct {
	Name  string
	Title string
	Path  string

	Columns []Column

	// Filters is the accepted filter vocabulary for List and Export.
	Filters []string

	// Key is the field Details matches a non-numeric argument against.
	Key string

	// Search holds the columns shown in global search results. Resources
	// without them are not searched.
	Search []Column

	Related []Relation
}

// Headers returns the column headers.
func (r *Resource) Headers() []string {
	return headersOf(r.Columns)
}

// Row renders the resource columns for rec.
func (r *Resource) Row(rec *record.Record) []string {
	return rowOf(r.Columns, rec)
}

// AllowsFilter reports whether name is in the filter vocabulary.
func (r *Resource) AllowsFilter(name string) bool {
	for _, f := range r.Filters {
		if f == name {
			return true
		}
	}
	return false
}

func headersOf(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Header
	}
	return out
}

func rowOf(cols []Column, rec *record.Record) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Value(rec)
	}
	return out
}

func col(header, path string) Column {
	return Column{Header: header, Path: path}
}

// cableEnd renders the first termination of one cable side as
// "device:interface", or the object name when it has no device.
func cableEnd(side string) func(rec *record.Record) string {
	return func(rec *record.Record) string {
		v, ok := rec.Get(side)
		if !ok {
			return flatten.NotAvailable
		}
		items := v.List()
		if len(items) == 0 || items[0].Record() == nil {
			return flatten.NotAvailable
		}
		obj, ok := items[0].Record().Lookup("object")
		if !ok || obj.Record() == nil {
			return flatten.NotAvailable
		}
		name := obj.Record().Str("name")
		if name == "" {
			return flatten.NotAvailable
		}
		if device, ok := obj.Record().Lookup("device.name"); ok && !device.IsNull() {
			return device.Text() + ":" + name
		}
		return name
	}
}

// cableLength renders length and unit label, e.g. "3.5m".
func cableLength(rec *record.Record) string {
	v, ok := rec.Get("length")
	if !ok || v.IsNull() {
		return flatten.NotAvailable
	}
	unit := ""
	if u, ok := rec.Lookup("length_unit.label"); ok && !u.IsNull() {
		unit = u.Text()
	}
	return v.Text() + unit
}

var registry = []*Resource{
	{
		Name: "devices", Title: "Devices", Path: "dcim/devices/",
		Columns: []Column{
			col("ID", "id"), col("Name", "name"),
			col("Type", "device_type.display"), col("Site", "site"),
			col("Rack", "rack"), col("Status", "status.label"),
			col("Primary IP", "primary_ip.address"),
		},
		Filters: []string{"site", "site_id", "role", "manufacturer", "status", "rack_id", "q"},
		Key:     "name",
		Search: []Column{
			col("ID", "id"), col("Name", "name"),
			col("Type", "device_type.display"), col("Site", "site"),
		},
		Related: []Relation{{Title: "Interfaces", Resource: "interfaces", Filter: "device_id"}},
	},
	{
		Name: "interfaces", Title: "Interfaces", Path: "dcim/interfaces/",
		Columns: []Column{
			col("ID", "id"), col("Device", "device"), col("Name", "name"),
			col("Type", "type.label"), col("Enabled", "enabled"),
			col("Connected To", "connected_endpoints"), col("Description", "description"),
		},
		Filters: []string{"device", "device_id", "site", "type", "enabled", "connected", "q"},
		Key:     "name",
	},
	{
		Name: "sites", Title: "Sites", Path: "dcim/sites/",
		Columns: []Column{
			col("ID", "id"), col("Name", "name"), col("Region", "region"),
			col("Status", "status.label"), col("Facility", "facility"),
			col("ASN", "asn"), col("Description", "description"),
		},
		Filters: []string{"region", "status", "q"},
		Key:     "name",
		Search: []Column{
			col("ID", "id"), col("Name", "name"), col("Region", "region"), col("Status", "status.label"),
		},
		Related: []Relation{
			{Title: "Racks", Resource: "racks", Filter: "site_id"},
			{Title: "Locations", Resource: "locations", Filter: "site_id"},
		},
	},
	{
		Name: "racks", Title: "Racks", Path: "dcim/racks/",
		Columns: []Column{
			col("ID", "id"), col("Name", "name"), col("Site", "site"),
			col("Location", "location"), col("Status", "status.label"),
			{Header: "Units", Path: "u_height", Suffix: "U"},
			col("Type", "type.label"),
			{Header: "Max Weight", Path: "max_weight", Suffix: "kg"},
		},
		Filters: []string{"site", "site_id", "location", "status", "q"},
		Key:     "name",
		Search: []Column{
			col("ID", "id"), col("Name", "name"), col("Site", "site"), col("Status", "status.label"),
		},
		Related: []Relation{{Title: "Devices", Resource: "devices", Filter: "rack_id"}},
	},
	{
		Name: "locations", Title: "Locations", Path: "dcim/locations/",
		Columns: []Column{
			col("ID", "id"), col("Name", "name"), col("Site", "site"),
			col("Parent", "parent"), col("Status", "status.label"), col("Description", "description"),
		},
		Filters: []string{"site", "site_id", "q"},
		Key:     "name",
	},
	{
		Name: "cables", Title: "Cables", Path: "dcim/cables/",
		Columns: []Column{
			col("ID", "id"), col("Label", "label"), col("Type", "type.label"),
			{Header: "Length", Render: cableLength},
			{Header: "A Side", Render: cableEnd("a_terminations")},
			{Header: "B Side", Render: cableEnd("b_terminations")},
			col("Status", "status.label"),
		},
		Filters: []string{"site", "site_id", "status", "type", "q"},
		Key:     "label",
	},
	{
		Name: "power-feeds", Title: "Power Feeds", Path: "dcim/power-feeds/",
		Columns: []Column{
			col("ID", "id"), col("Name", "name"), col("Rack", "rack"),
			col("Status", "status.label"), col("Type", "type.label"),
			{Header: "Voltage", Path: "voltage", Suffix: "V"},
			{Header: "Amperage", Path: "amperage", Suffix: "A"},
			{Header: "Max Utilization", Path: "max_utilization", Suffix: "%"},
		},
		Filters: []string{"site", "site_id", "q"},
		Key:     "name",
	},
	{
		Name: "prefixes", Title: "Prefixes", Path: "ipam/prefixes/",
		Columns: []Column{
			col("ID", "id"), col("Prefix", "prefix"),
			{Header: "VRF", Path: "vrf", Default: "Global"},
			col("Site", "site"), col("Role", "role"),
			col("Status", "status.label"), col("Description", "description"),
		},
		Filters: []string{"vrf", "site", "site_id", "role", "status", "q"},
		Key:     "prefix",
		Search: []Column{
			col("ID", "id"), col("Prefix", "prefix"), col("Site", "site"), col("Status", "status.label"),
		},
		Related: []Relation{{Title: "IP Addresses", Resource: "ip-addresses", Filter: "parent_id"}},
	},
	{
		Name: "ip-addresses", Title: "IP Addresses", Path: "ipam/ip-addresses/",
		Columns: []Column{
			col("ID", "id"), col("Address", "address"),
			{Header: "VRF", Path: "vrf", Default: "Global"},
			col("Status", "status.label"), col("DNS Name", "dns_name"),
			col("Assigned To", "assigned_object"), col("Description", "description"),
		},
		Filters: []string{"parent", "vrf", "status", "device", "interface_id", "q"},
		Key:     "address",
		Search: []Column{
			col("ID", "id"), col("Address", "address"), col("Status", "status.label"),
			col("Assigned To", "assigned_object.device"),
		},
	},
	{
		Name: "vlans", Title: "VLANs", Path: "ipam/vlans/",
		Columns: []Column{
			col("ID", "id"), col("VID", "vid"), col("Name", "name"),
			{Header: "Site", Path: "site", Default: "Global"},
			col("Group", "group"), col("Status", "status.label"),
			col("Role", "role"), col("Description", "description"),
		},
		Filters: []string{"site", "site_id", "group", "status", "role", "vid", "q"},
		Key:     "name",
		Search: []Column{
			col("ID", "id"), col("VID", "vid"), col("Name", "name"),
			{Header: "Site", Path: "site", Default: "Global"},
		},
	},
	{
		Name: "vrfs", Title: "VRFs", Path: "ipam/vrfs/",
		Columns: []Column{
			col("ID", "id"), col("Name", "name"), col("RD", "rd"),
			col("Import Targets", "import_targets"), col("Export Targets", "export_targets"),
			col("Description", "description"),
		},
		Filters: []string{"q"},
		Key:     "name",
	},
	{
		Name: "circuits", Title: "Circuits", Path: "circuits/circuits/",
		Columns: []Column{
			col("ID", "id"), col("CID", "cid"), col("Provider", "provider"),
			col("Type", "type"), col("Status", "status.label"),
			{Header: "Commit Rate", Path: "commit_rate", Suffix: " kbps"},
			col("Description", "description"),
		},
		Filters: []string{"provider", "provider_id", "type", "type_id", "status", "site", "q"},
		Key:     "cid",
		Search: []Column{
			col("ID", "id"), col("CID", "cid"), col("Provider", "provider"), col("Status", "status.label"),
		},
		Related: []Relation{{Title: "Terminations", Resource: "circuit-terminations", Filter: "circuit_id"}},
	},
	{
		Name: "circuit-terminations", Title: "Circuit Terminations", Path: "circuits/circuit-terminations/",
		Columns: []Column{
			col("ID", "id"), col("Circuit", "circuit.cid"), col("Side", "term_side"),
			col("Site", "site"), col("Provider Network", "provider_network"),
			{Header: "Port Speed", Path: "port_speed", Suffix: " kbps"},
			{Header: "Upstream Speed", Path: "upstream_speed", Suffix: " kbps"},
			col("Cross Connect", "xconnect_id"),
		},
		Filters: []string{"circuit_id", "site", "site_id", "term_side"},
		Key:     "xconnect_id",
	},
	{
		Name: "providers", Title: "Providers", Path: "circuits/providers/",
		Columns: []Column{
			col("ID", "id"), col("Name", "name"), col("ASN", "asn"),
			col("Account", "account"), col("Portal URL", "portal_url"), col("NOC Contact", "noc_contact"),
		},
		Filters: []string{"q"},
		Key:     "name",
		Related: []Relation{{Title: "Circuits", Resource: "circuits", Filter: "provider_id"}},
	},
	{
		Name: "circuit-types", Title: "Circuit Types", Path: "circuits/circuit-types/",
		Columns: []Column{
			col("ID", "id"), col("Name", "name"), col("Slug", "slug"), col("Description", "description"),
		},
		Filters: []string{"q"},
		Key:     "name",
	},
}

var byName = func() map[string]*Resource {
	m := make(map[string]*Resource, len(registry))
	for _, r := range registry {
		m[r.Name] = r
	}
	return m
}()

// Resources returns the registered resources in registry order.
func Resources() []*Resource {
	return append([]*Resource(nil), registry...)
}

// ResourceNames returns the registered names sorted.
func ResourceNames() []string {
	names := make([]string, 0, len(registry))
	for _, r := range registry {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a resource by name. Underscores are accepted for dashes.
func Lookup(name string) (*Resource, error) {
	r, ok := byName[strings.ReplaceAll(strings.ToLower(name), "_", "-")]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownResource, name, strings.Join(ResourceNames(), ", "))
	}
	return r, nil
}

func mustLookup(name string) *Resource {
	r, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return r
}
