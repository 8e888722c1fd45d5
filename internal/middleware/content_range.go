// Package middleware contains gin pipeline stages shared by every route group.
package middleware

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/module-progress-console/internal/repository"
)

// HeaderContentRange is read by list consumers (react-admin's simple REST
// provider) to learn the collection total.
const HeaderContentRange = "Content-Range"

// Descriptor is the window a Content-Range value describes.
// Start and End are inclusive item indices.
type Descriptor struct {
	Resource string
	Start    int
	End      int
	Total    int
}

// NewDescriptor describes the whole of a collection holding total items.
// An empty collection is reported as 0-0/0 so no index is ever negative.
func NewDescriptor(resource string, total int) Descriptor {
	if total <= 0 {
		return Descriptor{Resource: resource}
	}
	return Descriptor{Resource: resource, Start: 0, End: total - 1, Total: total}
}

// String renders "<resource> <start>-<end>/<total>", e.g. "courses 0-4/5".
func (d Descriptor) String() string {
	return d.Resource + " " + strconv.Itoa(d.Start) + "-" + strconv.Itoa(d.End) + "/" + strconv.Itoa(d.Total)
}

// ContentRange stamps Content-Range with the full extent of resource before
// the rest of the chain runs. The size is asked of counter on every request.
//
// If counting fails no header is written, the error (always matching
// repository.ErrDataUnavailable) is attached to the context and the chain
// is aborted; ErrorHandler renders it.
func ContentRange(resource string, counter repository.Counter) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := counter.Count(c.Request.Context())
		if err == nil && n < 0 {
			err = fmt.Errorf("%s reported a negative size %d", resource, n)
		}
		if err != nil {
			_ = c.Error(repository.Unavailable(err))
			c.Abort()
			return
		}
		c.Header(HeaderContentRange, NewDescriptor(resource, n).String())
		c.Next()
	}
}
