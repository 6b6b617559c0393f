package api

import (
	"encoding/json"
	"net/http"

	"hermannm.dev/webanalytics/log"
	"hermannm.dev/wrap"
)

func sendError(message string, statusCode int, err error, res http.ResponseWriter) {
	if err != nil {
		if message == "" {
			message = err.Error()
		} else {
			message = wrap.Error(err, message).Error()
		}
	}

	if statusCode >= http.StatusInternalServerError {
		log.Error(nil, message)
	} else {
		log.Info(message)
	}
	http.Error(res, message, statusCode)
}

func sendJSON(value any, res http.ResponseWriter) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(res).Encode(value); err != nil {
		log.Error(err, "failed to serialize response")
	}
}
