package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/netbox-inventory/internal/testutil"
	"github.com/Sternrassler/netbox-inventory/pkg/pagination"
)

func TestCircuitStats(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.CircuitStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"Active", "2"},
		{"Decommissioning", "1"},
		{"Planned", "1"},
	}, rep.Find("By status").Rows)

	// equal counts are ordered by name; Lumen has no circuits
	assert.Equal(t, [][]string{
		{"Cogent", "2"},
		{"Zayo", "2"},
	}, rep.Find("By provider").Rows)

	assert.Equal(t, [][]string{
		{"Internet", "2"},
		{"MPLS", "2"},
	}, rep.Find("By type").Rows)

	assert.Contains(t, rep.Find("").Lines, "Total: 4 circuits")
}

func TestCircuitStats_TopProviders(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	mock.AddRecords("circuits/circuit-types/")
	mock.AddGenerated("circuits/providers/", 12, func(i int) string {
		return `{"id":` + strconv.Itoa(i) + `,"name":"provider-` + strconv.Itoa(i+10) + `"}`
	})
	mock.AddGenerated("circuits/circuits/", 12, func(i int) string {
		return `{"id":` + strconv.Itoa(i) + `,"cid":"C` + strconv.Itoa(i) + `","provider":{"id":` + strconv.Itoa(i) + `},"status":{"label":"Active"}}`
	})
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.CircuitStats(context.Background())
	require.NoError(t, err)

	byProvider := rep.Find("By provider")
	require.Len(t, byProvider.Rows, TopProviders)
	assert.Equal(t, []string{"provider-11", "1"}, byProvider.Rows[0])
	assert.Equal(t, []string{"... and 2 more providers"}, byProvider.Lines)
}

func TestCircuitStats_DegradedProvider(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	mock.FailWhen("circuits/circuits/", url.Values{"provider_id": {"2"}},
		testutil.MockFailure{StatusCode: http.StatusInternalServerError})
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.CircuitStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"Zayo", "2"},
		{"Cogent", "unknown (http 500)"},
	}, rep.Find("By provider").Rows)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "Cogent", rep.Failures[0].Label)
}

func TestProviders(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.Providers(context.Background())
	require.NoError(t, err)

	s := rep.Sections[0]
	assert.Equal(t, "Circuits", s.Headers[len(s.Headers)-1])
	assert.Equal(t, []string{"1", "Zayo", "6461", "ACC-1", "N/A", "N/A", "2"}, s.Rows[0])
	assert.Equal(t, "0", s.Rows[2][6])
}

func TestCircuitTypes(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.CircuitTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "MPLS", "mpls", "N/A", "2"}, rep.Sections[0].Rows[1])
}

func TestProviderCircuits(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.ProviderCircuits(context.Background(), "Zayo")
	require.NoError(t, err)

	s := rep.Sections[0]
	assert.Equal(t, []string{"CID", "Type", "Status", "Sites", "Commit Rate", "Install Date"}, s.Headers)
	assert.Equal(t, []string{"CID-1", "Internet", "Active", "PAR1 <-> LON1", "10000 kbps", "2024-01-15"}, s.Rows[0])
	assert.Equal(t, []string{"CID-3", "MPLS", "Planned", "PAR1", "N/A", "N/A"}, s.Rows[1])

	_, err = rp.ProviderCircuits(context.Background(), "Nobody")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestSiteSummary(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.SiteSummary(context.Background(), "PAR1")
	require.NoError(t, err)

	attrs := rep.Find("Attributes")
	assert.Equal(t, []string{"Region", "Europe"}, rowByFirst(attrs, "Region"))
	assert.Equal(t, []string{"Time Zone", "Europe/Paris"}, rowByFirst(attrs, "Time Zone"))

	assert.Equal(t, [][]string{
		{"Devices", "3"},
		{"Racks", "1"},
		{"Locations", "1"},
		{"Cables", "0"},
		{"Prefixes", "1"},
	}, rep.Find("Statistics").Rows)
}

func TestRackElevation(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.RackElevation(context.Background(), "R1")
	require.NoError(t, err)

	assert.Equal(t, "Rack elevation: R1 (4U)", rep.Title)
	assert.Equal(t, [][]string{
		{"U 4", "srv1 (R640)", "srv1 (R640)"},
		{"U 3", FreeUnit, FreeUnit},
		{"U 2", "sw1 (C9300-48P)", FreeUnit},
		{"U 1", "sw1 (C9300-48P)", FreeUnit},
	}, rep.Find("Units").Rows)
	assert.Equal(t, []string{"Site: PAR1", "Location: Hall A"}, rep.Sections[0].Lines)
}

func TestRackElevation_ByIDAndDegradedType(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	mock.FailWhen("dcim/device-types/", url.Values{"id": {"51"}}, testutil.MockFailure{StatusCode: http.StatusInternalServerError})
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.RackElevation(context.Background(), "10")
	require.NoError(t, err)

	// without its device type srv1 is one unit deep and stays on its face
	rows := rep.Find("Units").Rows
	assert.Equal(t, []string{"U 4", FreeUnit, "srv1 (unknown (http 500))"}, rows[0])
	assert.Equal(t, []string{"U 2", "sw1 (C9300-48P)", FreeUnit}, rows[2])
	assert.True(t, rep.Degraded())
}

func TestDeviceInterfaces(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.DeviceInterfaces(context.Background(), "sw1")
	require.NoError(t, err)

	s := rep.Sections[0]
	assert.Equal(t, "Interfaces (2 found)", s.Title)
	assert.Equal(t, []string{"Gi1/0/1", "1000BASE-T (1GE)", "true", "10.0.0.1/24\n10.0.0.2/24", "eth0", "uplink"}, s.Rows[0])
	assert.Equal(t, []string{"Gi1/0/2", "1000BASE-T (1GE)", "false", "N/A", "N/A", "N/A"}, s.Rows[1])
}

func TestExport_CSV(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	long := strings.Repeat("x", 80)
	mock.AddRecords("dcim/sites/",
		`{"id":1,"name":"PAR1","region":{"id":1,"name":"Europe"}}`,
		`{"id":2,"name":"LON1","description":"`+long+`"}`,
	)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	var buf bytes.Buffer
	summary, err := rp.Export(context.Background(), "sites", nil, FormatCSV, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Records)
	assert.Equal(t, 4, summary.Columns)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"id", "name", "region", "description"},
		{"1", "PAR1", "Europe", "N/A"},
		{"2", "LON1", "N/A", long},
	}, rows)
}

func TestExport_JSON(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	mock.AddRecords("ipam/vlans/",
		`{"id":1,"vid":100,"name":"users","tags":[{"name":"a"},{"name":"b"}]}`,
		`{"id":2,"vid":200,"name":"voice","site":null}`,
	)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	var buf bytes.Buffer
	_, err := rp.Export(context.Background(), "vlans", nil, FormatJSON, &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Less(t, strings.Index(out, `"vid"`), strings.Index(out, `"tags"`), "column order is preserved")

	var rows []map[string]string
	require.NoError(t, gojson.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "a\nb", rows[0]["tags"])
	assert.Equal(t, "N/A", rows[0]["site"])
	assert.Equal(t, "N/A", rows[1]["tags"])
	assert.Equal(t, "200", rows[1]["vid"])
}

func TestExport_Raw(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	mock.AddRecords("circuits/providers/", `{"id":1,"name":"Zayo","asn":6461,"tags":[]}`)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	var buf bytes.Buffer
	_, err := rp.Export(context.Background(), "providers", nil, FormatRaw, &buf)
	require.NoError(t, err)

	var recs []map[string]any
	require.NoError(t, gojson.Unmarshal(buf.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, float64(6461), recs[0]["asn"])
	assert.Equal(t, []any{}, recs[0]["tags"])
}

func TestExport_Errors(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	mock.AddRecords("dcim/sites/")
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	var buf bytes.Buffer
	_, err := rp.Export(context.Background(), "sites", nil, Format("xml"), &buf)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = rp.Export(context.Background(), "sites", Filters{"tenant": "x"}, FormatCSV, &buf)
	assert.ErrorIs(t, err, ErrUnsupportedFilter)

	_, err = rp.Export(context.Background(), "racks", nil, FormatCSV, &buf)
	require.Error(t, err, "a missing collection fails the drain")
	assert.Equal(t, 0, buf.Len())
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"JSON", FormatJSON, false},
		{"raw", FormatRaw, false},
		{"xlsx", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "json", FormatRaw.Extension())
}
