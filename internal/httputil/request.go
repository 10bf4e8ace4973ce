package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// maxBodyBytes bounds JSON request bodies. Transcripts are the largest payload.
const maxBodyBytes = 10 << 20

// ParseJSON decodes the request body into dest. Unknown top-level fields are
// ignored; document fields are checked against the field registry by the
// models' own decoders.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
