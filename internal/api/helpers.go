package api

import (
	"encoding/json/v2"
	"net/http"
	"strconv"

	domainerrors "github.com/ceritasekitarmu/cerita-server/internal/errors"
)

// decodeJSON decodes a request body into dst using json/v2.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.UnmarshalRead(r.Body, dst); err != nil {
		return domainerrors.Validation("invalid JSON body").WithCause(err)
	}
	return nil
}

// boolParam parses an optional boolean query parameter. Returns nil when the
// parameter is absent.
func boolParam(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	switch raw {
	case "1", "true":
		v := true
		return &v, nil
	case "0", "false":
		v := false
		return &v, nil
	default:
		return nil, domainerrors.Validationf("invalid boolean parameter %q", name)
	}
}

// int64Param parses a numeric path parameter.
func int64Param(raw, name string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domainerrors.Validationf("invalid %s", name)
	}
	return v, nil
}
