package report

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/netbox-inventory/internal/testutil"
	"github.com/Sternrassler/netbox-inventory/pkg/aggregate"
	"github.com/Sternrassler/netbox-inventory/pkg/cache"
	"github.com/Sternrassler/netbox-inventory/pkg/client"
	"github.com/Sternrassler/netbox-inventory/pkg/pagination"
)

func newTestReporter(t *testing.T, mock *testutil.MockNetBox, drainCfg pagination.Config) *Reporter {
	t.Helper()
	cfg := client.DefaultConfig(mock.URL(), "test-token")
	cfg.MaxAttempts = 1
	c, err := client.New(cfg)
	require.NoError(t, err)

	lookups, err := cache.NewManager(64)
	require.NoError(t, err)

	drainer := pagination.NewDrainer(c, drainCfg)
	return New(c, drainer, aggregate.New(drainer, lookups, aggregate.DefaultConfig()))
}

// seedInventory loads a small two-site inventory.
func seedInventory(mock *testutil.MockNetBox) {
	mock.AddRecords("dcim/sites/",
		`{"id":1,"name":"PAR1","slug":"par1","status":{"value":"active","label":"Active"},"region":{"id":1,"name":"Europe"},"facility":"Equinix PA3","asn":64512,"time_zone":"Europe/Paris","description":"Paris core"}`,
		`{"id":2,"name":"LON1","slug":"lon1","status":{"value":"planned","label":"Planned"},"region":null,"facility":"","asn":null,"description":""}`,
	)
	mock.AddRecords("dcim/racks/",
		`{"id":10,"name":"R1","site":{"id":1,"name":"PAR1"},"location":{"id":1,"name":"Hall A"},"status":{"value":"active","label":"Active"},"u_height":4,"type":null,"max_weight":null}`,
		`{"id":11,"name":"R2","site":{"id":2,"name":"LON1"},"location":null,"status":{"value":"active","label":"Active"},"u_height":42,"type":null,"max_weight":null}`,
	)
	mock.AddRecords("dcim/locations/",
		`{"id":1,"name":"Hall A","site":{"id":1,"name":"PAR1"},"parent":null,"status":{"value":"active","label":"Active"}}`,
	)
	mock.AddRecords("dcim/device-types/",
		`{"id":50,"model":"C9300-48P","u_height":2,"is_full_depth":false}`,
		`{"id":51,"model":"R640","u_height":1,"is_full_depth":true}`,
		`{"id":52,"model":"PDU","u_height":0,"is_full_depth":false}`,
	)
	mock.AddRecords("dcim/devices/",
		`{"id":100,"name":"sw1","device_type":{"id":50,"display":"Cisco C9300-48P"},"site":{"id":1,"name":"PAR1"},"rack":{"id":10,"name":"R1"},"position":1.0,"face":{"value":"front","label":"Front"},"status":{"value":"active","label":"Active"},"primary_ip":{"id":300,"address":"10.0.0.1/24"},"primary_ip4":{"id":300,"address":"10.0.0.1/24"},"primary_ip6":null}`,
		`{"id":101,"name":"srv1","device_type":{"id":51,"display":"Dell R640"},"site":{"id":1,"name":"PAR1"},"rack":{"id":10,"name":"R1"},"position":4,"face":{"value":"rear","label":"Rear"},"status":{"value":"active","label":"Active"},"primary_ip":null,"primary_ip4":null,"primary_ip6":null}`,
		`{"id":102,"name":"pdu1","device_type":{"id":52,"display":"PDU"},"site":{"id":1,"name":"PAR1"},"rack":null,"position":null,"face":null,"status":{"value":"offline","label":"Offline"},"primary_ip":null,"primary_ip4":null,"primary_ip6":null}`,
	)
	mock.AddRecords("dcim/interfaces/",
		`{"id":200,"device":{"id":100,"name":"sw1"},"name":"Gi1/0/1","type":{"value":"1000base-t","label":"1000BASE-T (1GE)"},"enabled":true,"connected_endpoints":[{"id":900,"name":"eth0","device":{"id":101,"name":"srv1"}}],"connected_endpoints_reachable":true,"description":"uplink"}`,
		`{"id":201,"device":{"id":100,"name":"sw1"},"name":"Gi1/0/2","type":{"value":"1000base-t","label":"1000BASE-T (1GE)"},"enabled":false,"connected_endpoints":null,"connected_endpoints_reachable":false,"description":""}`,
	)
	mock.AddRecords("dcim/cables/")
	mock.AddRecords("ipam/prefixes/",
		`{"id":1,"prefix":"10.0.0.0/24","vrf":null,"site":{"id":1,"name":"PAR1"},"role":null,"status":{"value":"active","label":"Active"},"description":"servers"}`,
	)
	mock.AddRecords("ipam/ip-addresses/",
		`{"id":300,"address":"10.0.0.1/24","vrf":null,"status":{"value":"active","label":"Active"},"dns_name":"sw1.par1","assigned_object_id":200,"assigned_object":{"id":200,"name":"Gi1/0/1","device":{"id":100,"name":"sw1"}}}`,
		`{"id":301,"address":"10.0.0.2/24","vrf":null,"status":{"value":"active","label":"Active"},"dns_name":"","assigned_object_id":200,"assigned_object":{"id":200,"name":"Gi1/0/1","device":{"id":100,"name":"sw1"}}}`,
	)
	mock.AddRecords("ipam/vlans/")
	mock.AddRecords("ipam/vrfs/")
	mock.AddRecords("circuits/providers/",
		`{"id":1,"name":"Zayo","asn":6461,"account":"ACC-1","portal_url":"","noc_contact":""}`,
		`{"id":2,"name":"Cogent","asn":174,"account":"","portal_url":"","noc_contact":""}`,
		`{"id":3,"name":"Lumen","asn":3356,"account":"","portal_url":"","noc_contact":""}`,
	)
	mock.AddRecords("circuits/circuit-types/",
		`{"id":1,"name":"Internet","slug":"internet","description":""}`,
		`{"id":2,"name":"MPLS","slug":"mpls","description":""}`,
	)
	mock.AddRecords("circuits/circuits/",
		`{"id":1,"cid":"CID-1","provider":{"id":1,"name":"Zayo"},"type":{"id":1,"name":"Internet"},"status":{"value":"active","label":"Active"},"commit_rate":10000,"install_date":"2024-01-15","description":"Paris-London"}`,
		`{"id":2,"cid":"CID-2","provider":{"id":2,"name":"Cogent"},"type":{"id":2,"name":"MPLS"},"status":{"value":"active","label":"Active"},"commit_rate":null,"install_date":null,"description":""}`,
		`{"id":3,"cid":"CID-3","provider":{"id":1,"name":"Zayo"},"type":{"id":2,"name":"MPLS"},"status":{"value":"planned","label":"Planned"},"commit_rate":null,"install_date":null,"description":""}`,
		`{"id":4,"cid":"CID-4","provider":{"id":2,"name":"Cogent"},"type":{"id":1,"name":"Internet"},"status":{"value":"decommissioning","label":"Decommissioning"},"commit_rate":null,"install_date":null,"description":""}`,
	)
	mock.AddRecords("circuits/circuit-terminations/",
		`{"id":1,"circuit":{"id":1,"cid":"CID-1"},"term_side":"A","site":{"id":1,"name":"PAR1"},"provider_network":null,"port_speed":10000,"upstream_speed":null,"xconnect_id":"XC-1"}`,
		`{"id":2,"circuit":{"id":1,"cid":"CID-1"},"term_side":"Z","site":{"id":2,"name":"LON1"},"provider_network":null,"port_speed":null,"upstream_speed":null,"xconnect_id":""}`,
		`{"id":3,"circuit":{"id":3,"cid":"CID-3"},"term_side":"A","site":{"id":1,"name":"PAR1"},"provider_network":null,"port_speed":null,"upstream_speed":null,"xconnect_id":""}`,
	)
}

func rowByFirst(s *Section, first string) []string {
	for _, row := range s.Rows {
		if len(row) > 0 && row[0] == first {
			return row
		}
	}
	return nil
}
