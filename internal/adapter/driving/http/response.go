package httphandler

import (
	"encoding/json"
	"io"
	"strconv"
)

// Status codes the server emits.
const (
	StatusOK                  = 200
	StatusBadRequest          = 400
	StatusNotFound            = 404
	StatusInternalServerError = 500
)

// Content types the server emits.
const (
	contentTypeJSON = "application/json"
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeText = "text/plain"
)

// StatusText returns the reason phrase for a status code.
func StatusText(code int) string {
	switch code {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	case StatusInternalServerError:
		return "Internal Server Error"
	default:
		return "Unknown"
	}
}

// Response is a complete response. Bodies are small and always sent in full
// with an exact Content-Length.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// writeTo frames resp onto w and closes nothing; the caller owns the
// connection.
func (resp Response) writeTo(w io.Writer) error {
	buf := make([]byte, 0, 128+len(resp.Body))
	buf = append(buf, "HTTP/1.1 "...)
	buf = strconv.AppendInt(buf, int64(resp.Status), 10)
	buf = append(buf, ' ')
	buf = append(buf, StatusText(resp.Status)...)
	buf = append(buf, "\r\nContent-Type: "...)
	buf = append(buf, resp.ContentType...)
	buf = append(buf, "\r\nContent-Length: "...)
	buf = strconv.AppendInt(buf, int64(len(resp.Body)), 10)
	buf = append(buf, "\r\nConnection: close\r\n\r\n"...)
	buf = append(buf, resp.Body...)

	_, err := w.Write(buf)
	return err
}

// writeJSON marshals v into a JSON response with the given status code. If
// marshaling fails, a 500 error is returned instead.
func writeJSON(status int, v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		return Response{
			Status:      StatusInternalServerError,
			ContentType: contentTypeJSON,
			Body:        []byte(`{"error":"internal server error"}`),
		}
	}

	return Response{Status: status, ContentType: contentTypeJSON, Body: data}
}

// writeError builds a JSON error response with the given status code and message.
func writeError(status int, message string) Response {
	return writeJSON(status, errorResponse{Error: message})
}

// writeText builds a plain-text response.
func writeText(status int, text string) Response {
	return Response{Status: status, ContentType: contentTypeText, Body: []byte(text)}
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// UploadResponse is the JSON body of a successful configuration upload.
type UploadResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	AccountsCount int    `json:"accounts_count"`
}

// StatusResponse is the JSON body of the status endpoint.
type StatusResponse struct {
	Status             string `json:"status"`
	FreeMemory         uint64 `json:"free_memory"`
	AccountsConfigured int    `json:"accounts_configured"`
}
