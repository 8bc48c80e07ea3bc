package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ApiError is the JSON error envelope. Fields carries field-scoped
// validation messages when a form is rejected locally.
type ApiError struct {
	StatusCode int               `json:"-"`
	Msg        string            `json:"error,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

func (o *ApiError) Error() string {
	return fmt.Sprintf("%d: %s", o.StatusCode, o.Msg)
}

func NewBadRequest(msg string) ApiError {
	return ApiError{StatusCode: http.StatusBadRequest, Msg: msg}
}

func NewUnauthorized(msg string) ApiError {
	return ApiError{StatusCode: http.StatusUnauthorized, Msg: msg}
}

func NewForbidden(msg string) ApiError {
	return ApiError{StatusCode: http.StatusForbidden, Msg: msg}
}

func NewNotFound(msg string) ApiError {
	return ApiError{StatusCode: http.StatusNotFound, Msg: msg}
}

func NewInternalServerError(msg string) ApiError {
	return ApiError{StatusCode: http.StatusInternalServerError, Msg: msg}
}

func NewFieldErrors(fields map[string]string) ApiError {
	return ApiError{StatusCode: http.StatusBadRequest, Msg: "validation failed", Fields: fields}
}

func JsonDecodeBody(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

// RenderResponse writes res as JSON. A nil res writes only the status.
func RenderResponse(w http.ResponseWriter, statusCode int, res interface{}) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	if res != nil {
		var err error
		body, err = json.Marshal(res)
		if err != nil {
			ae := NewInternalServerError(err.Error())
			statusCode = ae.StatusCode
			body, _ = json.Marshal(&ae)
		}
	}
	w.WriteHeader(statusCode)
	if len(body) > 0 {
		w.Write(body)
	}
}

func AllowedMethods(next http.HandlerFunc, methods ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if existsInSlice(methods, r.Method) {
			next(w, r)
		} else {
			RenderResponse(w, http.StatusMethodNotAllowed, nil)
		}
	}
}

// AllowedContentTypes gates request bodies on Content-Type. Requests
// without a body (GET, DELETE) pass through.
func AllowedContentTypes(next http.HandlerFunc, mediaTypes ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" {
			next(w, r)
			return
		}
		mt := strings.TrimSpace(strings.Split(ct, ";")[0])
		if existsInSlice(mediaTypes, mt) {
			next(w, r)
		} else {
			RenderResponse(w, http.StatusUnsupportedMediaType, nil)
		}
	}
}

func existsInSlice(list []string, needle string) bool {
	for i := range list {
		if list[i] == needle {
			return true
		}
	}
	return false
}
