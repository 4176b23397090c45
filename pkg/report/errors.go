package report

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/netbox-inventory/pkg/client"
	"github.com/Sternrassler/netbox-inventory/pkg/pagination"
)

// Errors returned by the reporter before any NetBox data is shown.
var (
	ErrUnknownResource   = errors.New("unknown resource")
	ErrUnsupportedFilter = errors.New("unsupported filter")
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrObjectNotFound    = errors.New("object not found")
)

// NotFoundError reports a named object that does not exist.
type NotFoundError struct {
	Resource string
	Key      string
}

// Error returns the resource and the key that was looked up.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// Is matches ErrObjectNotFound so callers can test with errors.Is.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrObjectNotFound
}

// Reason condenses a failure into the short label shown in reports.
func Reason(err error) string {
	var te *client.TransportError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, pagination.ErrPaginationCycle):
		return "pagination cycle suspected"
	case client.IsCancelled(err):
		return "cancelled"
	case errors.Is(err, client.ErrRequestTimeout):
		return "timeout"
	case errors.As(err, &te):
		if te.Kind == client.KindHTTP {
			return fmt.Sprintf("http %d", te.StatusCode)
		}
		return string(te.Kind)
	default:
		return err.Error()
	}
}

// Unknown renders a degraded value.
func Unknown(err error) string {
	return "unknown (" + Reason(err) + ")"
}

// isFatal reports failures that end a view instead of degrading it.
func isFatal(err error) bool {
	return client.IsAuthFailure(err) || client.IsCancelled(err)
}
