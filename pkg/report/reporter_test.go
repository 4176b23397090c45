package report

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/netbox-inventory/internal/testutil"
	"github.com/Sternrassler/netbox-inventory/pkg/client"
	"github.com/Sternrassler/netbox-inventory/pkg/pagination"
)

func TestList_Devices(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)

	rp := newTestReporter(t, mock, pagination.DefaultConfig())
	rep, err := rp.List(context.Background(), "devices", nil)
	require.NoError(t, err)

	require.Len(t, rep.Sections, 1)
	s := rep.Sections[0]
	assert.Equal(t, "Devices (3 found)", s.Title)
	assert.Equal(t, []string{"ID", "Name", "Type", "Site", "Rack", "Status", "Primary IP"}, s.Headers)
	assert.Equal(t, []string{"100", "sw1", "Cisco C9300-48P", "PAR1", "R1", "Active", "10.0.0.1/24"}, s.Rows[0])
	assert.Equal(t, []string{"102", "pdu1", "PDU", "PAR1", "N/A", "Offline", "N/A"}, s.Rows[2])
	assert.False(t, rep.Degraded())
}

func TestList_Filters(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.List(context.Background(), "devices", Filters{"status": "offline"})
	require.NoError(t, err)
	require.Len(t, rep.Sections[0].Rows, 1)
	assert.Equal(t, "pdu1", rep.Sections[0].Rows[0][1])
	assert.Contains(t, mock.Requests()[0], "status=offline")

	_, err = rp.List(context.Background(), "devices", Filters{"serial": "X"})
	assert.ErrorIs(t, err, ErrUnsupportedFilter)

	_, err = rp.List(context.Background(), "widgets", nil)
	assert.ErrorIs(t, err, ErrUnknownResource)
}

func TestList_CapNote(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	mock.AddGenerated("dcim/sites/", 8, func(i int) string {
		return `{"id":` + strconv.Itoa(i) + `,"name":"site-` + strconv.Itoa(i) + `"}`
	})

	cfg := pagination.DefaultConfig()
	cfg.MaxItems = 5
	rp := newTestReporter(t, mock, cfg)

	rep, err := rp.List(context.Background(), "sites", nil)
	require.NoError(t, err)
	s := rep.Sections[0]
	assert.Len(t, s.Rows, 5)
	assert.Contains(t, s.Lines, "Showing 5 of 8 records (cap reached)")
}

func TestList_EmptyCollection(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.List(context.Background(), "vlans", nil)
	require.NoError(t, err)
	assert.Empty(t, rep.Sections[0].Rows)
	assert.Contains(t, rep.Sections[0].Lines, "No vlans found")
}

func TestList_AuthFailure(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	mock.RequireToken("other-token")
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	_, err := rp.List(context.Background(), "sites", nil)
	require.Error(t, err)
	assert.True(t, client.IsAuthFailure(err))
}

func TestDetails(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.Details(context.Background(), "circuits", "CID-1")
	require.NoError(t, err)

	attrs := rep.Find("Attributes")
	require.NotNil(t, attrs)
	assert.Equal(t, []string{"id", "1"}, attrs.Rows[0])
	assert.Equal(t, []string{"provider", "Zayo"}, rowByFirst(attrs, "provider"))
	assert.Equal(t, []string{"install_date", "2024-01-15"}, rowByFirst(attrs, "install_date"))

	terms := rep.Find("Terminations")
	require.NotNil(t, terms)
	require.Len(t, terms.Rows, 2)
	assert.Equal(t, "A", terms.Rows[0][2])
	assert.Equal(t, "10000 kbps", terms.Rows[0][5])
	assert.Equal(t, "LON1", terms.Rows[1][3])
}

func TestDetails_ByID(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.Details(context.Background(), "devices", "101")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "srv1"}, rowByFirst(rep.Find("Attributes"), "name"))
	assert.Contains(t, rep.Find("Interfaces").Lines, "No interfaces")
}

func TestDetails_NotFound(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	_, err := rp.Details(context.Background(), "sites", "NOWHERE")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrObjectNotFound)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "sites", nf.Resource)
}

func TestDetails_RelatedFailureDegrades(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	mock.FailWhen("dcim/locations/", nil, testutil.MockFailure{StatusCode: http.StatusBadGateway, Body: `{"detail":"bad gateway"}`})
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.Details(context.Background(), "sites", "PAR1")
	require.NoError(t, err)

	assert.Len(t, rep.Find("Racks").Rows, 1)
	assert.Equal(t, []string{"Locations: unknown (http 502)"}, rep.Find("Locations").Lines)
	require.True(t, rep.Degraded())
	assert.Equal(t, "Locations", rep.Failures[0].Label)
}

func TestSearch(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	mock.AddGenerated("dcim/devices/", 7, func(i int) string {
		return `{"id":` + strconv.Itoa(1000+i) + `,"name":"sw-gen-` + strconv.Itoa(i) + `","site":{"id":1,"name":"PAR1"}}`
	})
	mock.FailWhen("circuits/circuits/", nil, testutil.MockFailure{StatusCode: http.StatusInternalServerError, Body: `{"detail":"boom"}`})
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.Search(context.Background(), "sw")
	require.NoError(t, err)

	devices := rep.Find("Devices (5)")
	require.NotNil(t, devices, "at most five results per resource")
	assert.Equal(t, []string{"ID", "Name", "Type", "Site"}, devices.Headers)
	assert.Equal(t, "sw1", devices.Rows[0][1])

	assert.Nil(t, rep.Find("Sites (0)"))
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "Circuits", rep.Failures[0].Label)

	var out strings.Builder
	require.NoError(t, rep.Render(&out, 0))
	assert.Contains(t, out.String(), "Circuits: unknown (http 500)")
}

func TestSearch_NoResults(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.Search(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Equal(t, []string{`No results for "zzz"`}, rep.Sections[0].Lines)
	assert.False(t, rep.Degraded())
}

func TestStatus(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	mock.FailWhen("ipam/vlans/", nil, testutil.MockFailure{StatusCode: http.StatusInternalServerError})
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.Status(context.Background())
	require.NoError(t, err)

	info := rep.Find("Instance")
	assert.Equal(t, []string{"netbox-version", "4.1.3"}, rowByFirst(info, "netbox-version"))

	objects := rep.Find("Objects")
	assert.Equal(t, []string{"Sites", "2"}, objects.Rows[0])
	assert.Equal(t, []string{"Devices", "3"}, rowByFirst(objects, "Devices"))
	assert.Equal(t, []string{"Cables", "0"}, rowByFirst(objects, "Cables"))
	assert.Equal(t, []string{"Circuits", "4"}, rowByFirst(objects, "Circuits"))
	assert.Equal(t, []string{"VLANs", "unknown (http 500)"}, rowByFirst(objects, "VLANs"))
	assert.True(t, rep.Degraded())
}

func TestStatus_ConnectionFailure(t *testing.T) {
	mock := testutil.NewMockNetBox()
	mock.Close()
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	_, err := rp.Status(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrConnectionRefused)
}

func TestValidate(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2 devices without primary IP",
		"1 unconnected interfaces",
		"1 empty racks",
		"2 circuits without terminations",
	}, rep.Find("Issues").Lines)
	assert.False(t, rep.Degraded())
}

func TestValidate_DegradedCheck(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	mock.FailWhen("dcim/interfaces/", nil, testutil.MockFailure{StatusCode: http.StatusServiceUnavailable})
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	rep, err := rp.Validate(context.Background())
	require.NoError(t, err)
	assert.Contains(t, rep.Find("Issues").Lines, "unconnected interfaces: unknown (http 503)")
	assert.True(t, rep.Degraded())
}

func TestValidate_CancelledAborts(t *testing.T) {
	mock := testutil.NewMockNetBox()
	defer mock.Close()
	seedInventory(mock)
	rp := newTestReporter(t, mock, pagination.DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := rp.Validate(ctx)
	require.Error(t, err)
	assert.True(t, client.IsCancelled(err))
	assert.Equal(t, 0, mock.RequestCount())
}
