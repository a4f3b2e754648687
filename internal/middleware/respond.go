package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/socialchef/moodbite/internal/errors"
	"github.com/socialchef/moodbite/internal/recommendation"
)

// writeError answers with the same error envelope the API handlers use.
func writeError(w http.ResponseWriter, appErr *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(recommendation.Failed(appErr.Code(), appErr.Message))
}
