package httphandler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Errors returned by readRequest. Both are answered with 400 Bad Request.
var (
	// ErrBadRequest indicates the bytes received are not an acceptable request.
	ErrBadRequest = errors.New("bad request")

	// ErrTransport indicates the connection failed or timed out mid-request.
	ErrTransport = errors.New("transport error")
)

// DefaultMaxRequestBytes bounds the request line, headers and body combined.
const DefaultMaxRequestBytes = 16 << 10

var headerTerminator = []byte("\r\n\r\n")

// Request is a parsed HTTP request. Header names are lower-cased.
type Request struct {
	Method  string
	Path    string
	Query   string
	Version string
	Header  map[string]string
	Body    []byte

	// ConnID identifies the connection the request arrived on in logs.
	ConnID string
}

// readRequest reads one request from r, never buffering more than limit
// bytes. The header block ends at the first CRLF CRLF; when Content-Length is
// present exactly that many body bytes are read, otherwise the body is
// whatever arrived after the header block.
func readRequest(r io.Reader, limit int) (*Request, error) {
	if limit <= 0 {
		limit = DefaultMaxRequestBytes
	}

	buf := make([]byte, 0, min(limit, 1024))
	chunk := make([]byte, 1024)
	headerEnd := -1
	eof := false

	for headerEnd < 0 {
		if len(buf) >= limit {
			return nil, fmt.Errorf("%w: request exceeds %d bytes", ErrBadRequest, limit)
		}

		n, err := r.Read(chunk[:min(len(chunk), limit-len(buf))])
		from := max(0, len(buf)-len(headerTerminator)+1)
		buf = append(buf, chunk[:n]...)
		if i := bytes.Index(buf[from:], headerTerminator); i >= 0 {
			headerEnd = from + i
			break
		}

		if errors.Is(err, io.EOF) {
			if len(buf) == 0 {
				return nil, fmt.Errorf("%w: connection closed before request", ErrTransport)
			}
			// Peer half-closed without a blank line: the whole buffer is the header block.
			headerEnd = len(buf)
			eof = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read request: %w", ErrTransport, err)
		}
	}

	req, err := parseHead(string(buf[:headerEnd]))
	if err != nil {
		return nil, err
	}

	var body []byte
	if !eof {
		body = buf[headerEnd+len(headerTerminator):]
	}

	raw, ok := req.Header["content-length"]
	if !ok {
		req.Body = body
		return req, nil
	}

	length, err := strconv.Atoi(raw)
	if err != nil || length < 0 {
		return nil, fmt.Errorf("%w: invalid content-length %q", ErrBadRequest, raw)
	}
	// Compare against the remaining budget so a huge length cannot overflow.
	if length > limit-(headerEnd+len(headerTerminator)) {
		return nil, fmt.Errorf("%w: request exceeds %d bytes", ErrBadRequest, limit)
	}

	if len(body) >= length {
		req.Body = body[:length]
		return req, nil
	}

	full := make([]byte, length)
	copy(full, body)
	if _, err := io.ReadFull(r, full[len(body):]); err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}
	req.Body = full
	return req, nil
}

// parseHead parses the request line and header lines.
func parseHead(head string) (*Request, error) {
	lines := strings.Split(head, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	parts := strings.SplitN(lines[0], " ", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: malformed request line %q", ErrBadRequest, lines[0])
	}

	req := &Request{
		Method: parts[0],
		Header: make(map[string]string),
	}
	req.Path, req.Query, _ = strings.Cut(parts[1], "?")
	if len(parts) == 3 {
		req.Version = strings.TrimSpace(parts[2])
	}

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: malformed header line %q", ErrBadRequest, line)
		}
		req.Header[strings.ToLower(name)] = strings.TrimSpace(value)
	}

	return req, nil
}
