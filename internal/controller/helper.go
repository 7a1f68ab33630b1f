package controller

import (
	"errors"
	"net"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/streamsave/server/pkg/rest"
)

func isValidationError(err error) bool {
	var validationErrors validation.Errors
	return errors.As(err, &validationErrors)
}

func (c controller) writeTextError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if isValidationError(err) {
		status = http.StatusBadRequest
	}

	rest.WriteText(w, status, "Error: "+err.Error())
}

func (c controller) clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
