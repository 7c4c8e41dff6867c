package api

import (
	"errors"
	"net/http"

	"github.com/netfusion/netfusion/pkg/httputil"
	"github.com/netfusion/netfusion/pkg/store"
)

// writeStoreError maps store sentinel errors to their HTTP status; anything
// else is a 500.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		httputil.WriteNotFoundError(w, "not found")
	case errors.Is(err, store.ErrConflict):
		httputil.WriteConflict(w, "already exists")
	default:
		httputil.WriteInternalError(w, err)
	}
}
