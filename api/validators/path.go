package validators

import (
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/homestock-backend/pkg/errors"
	"github.com/go-chi/chi/v5"
)

// PathParam returns the decoded value of a chi URL parameter. Room and item
// names travel in the path, so "Living%20Room" must match "Living Room".
// chi routes on RawPath when the request carried escapes net/url keeps
// (such as %2F), and those params still need unescaping.
func PathParam(r *http.Request, key string) (string, error) {
	value := chi.URLParam(r, key)
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(value)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid path parameter").WithDetails(map[string]any{"field": key})
		}
		value = decoded
	}
	if strings.TrimSpace(value) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "path parameter is required").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
