package pagination

import (
	"errors"
	"fmt"
)

// ErrPaginationCycle is returned when a server keeps handing out
// continuation references past the iteration bound, or repeats one.
var ErrPaginationCycle = errors.New("pagination cycle suspected")

// PageFetchError reports the page at which a drain failed. Offset is the
// number of records accumulated before the failing page.
type PageFetchError struct {
	Ref    CollectionRef
	Page   int
	Offset int
	Err    error
}

// Error implements the error interface.
func (e *PageFetchError) Error() string {
	return fmt.Sprintf("fetch %s page %d (offset %d): %v", e.Ref, e.Page, e.Offset, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PageFetchError) Unwrap() error {
	return e.Err
}
