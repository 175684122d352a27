// JSON response plumbing for the control API.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spoolghost/gritd/internal/models"
)

// fallbackErrorResponse is pre-marshaled so a failed encode at request time
// still produces valid JSON.
var fallbackErrorResponse []byte

func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(models.Error("Internal server error"))
	if err != nil {
		panic(fmt.Sprintf("failed to marshal fallback error response at startup: %v", err))
	}
}

// writeJSONResponse writes a JSON response with the given status code. The
// payload is marshaled before any header is written, so encoding errors can
// still change the status.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}
