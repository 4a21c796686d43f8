// Package httpclient implements spec.md §4.3: parsing a raw HTTP/1.1
// request blob, rendering it back to wire bytes, sending it over a
// caller-supplied net.Conn (owned by an internal/transport.Strategy), and
// reading the response with standard framing. It intentionally bypasses
// net/http's client: the race dispatcher needs to control exactly which
// bytes hit the wire and when (spec.md §4.5 step 5's last-byte
// withholding would be impossible through net/http.Client).
package httpclient

import (
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"raceforge/internal/models"
	"raceforge/internal/template"
)

// Request is a parsed raw HTTP/1.1 request, accepting either CRLF or LF
// line endings on input (spec.md §4.3).
type Request struct {
	Method  string
	Path    string
	Proto   string
	Headers []HeaderField
	Body    []byte
}

// HeaderField preserves declaration order and duplicate header names,
// unlike a map, since a render pass must reproduce the templated blob
// byte-for-byte modulo substitution (spec.md §8: "send_all_first produces
// byte-identical total output to barrier").
type HeaderField struct {
	Name  string
	Value string
}

func (r *Request) HeaderGet(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

func (r *Request) headerSet(name, value string) {
	for i := range r.Headers {
		if strings.EqualFold(r.Headers[i].Name, name) {
			r.Headers[i].Value = value
			return
		}
	}
	r.Headers = append(r.Headers, HeaderField{Name: name, Value: value})
}

// ParseRequest splits a raw request blob into method/path/headers/body,
// normalizing CRLF and bare LF line endings.
func ParseRequest(blob string) (*Request, error) {
	normalized := strings.ReplaceAll(blob, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, models.NewError(models.KindHTTPError, "empty request line")
	}

	reqLine := strings.Fields(lines[0])
	if len(reqLine) < 2 {
		return nil, models.NewError(models.KindHTTPError, "malformed request line %q", lines[0])
	}

	req := &Request{Method: reqLine[0], Path: reqLine[1], Proto: "HTTP/1.1"}
	if len(reqLine) >= 3 {
		req.Proto = reqLine[2]
	}

	i := 1
	for ; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			i++
			break
		}
		idx := strings.IndexByte(line, ':')
		if idx == -1 {
			continue
		}
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		req.Headers = append(req.Headers, HeaderField{Name: name, Value: value})
	}

	if i < len(lines) {
		req.Body = []byte(strings.Join(lines[i:], "\n"))
	}

	return req, nil
}

// Render produces wire-ready CRLF bytes: defaults Host from target config
// if absent, and computes Content-Length when a body is present and the
// header is missing (spec.md §4.3). Header names/values are validated
// with golang.org/x/net/http/httpguts, the same validity rules net/http
// itself enforces, so a malformed templated header fails fast instead of
// producing a request smuggling-prone blob.
func (r *Request) Render(defaultHost string) ([]byte, error) {
	if _, ok := r.HeaderGet("Host"); !ok && defaultHost != "" {
		r.headerSet("Host", defaultHost)
	}

	if len(r.Body) > 0 {
		if _, ok := r.HeaderGet("Content-Length"); !ok {
			r.headerSet("Content-Length", strconv.Itoa(len(r.Body)))
		}
	}

	// A templated "{{len(body)}}" header value (spec.md §4.1's dedicated
	// Content-Length primitive) survives template execution unresolved;
	// fill it in now that the body is fully parsed.
	for i := range r.Headers {
		if replaced, ok := template.RenderContentLength(r.Headers[i].Value, r.Body); ok {
			r.Headers[i].Value = replaced
		}
	}

	var sb strings.Builder
	sb.WriteString(r.Method)
	sb.WriteByte(' ')
	sb.WriteString(r.Path)
	sb.WriteByte(' ')
	sb.WriteString(r.Proto)
	sb.WriteString("\r\n")

	for _, h := range r.Headers {
		if !httpguts.ValidHeaderFieldName(h.Name) {
			return nil, models.NewError(models.KindHTTPError, "invalid header name %q", h.Name)
		}
		if !httpguts.ValidHeaderFieldValue(h.Value) {
			return nil, models.NewError(models.KindHTTPError, "invalid header value for %q", h.Name)
		}
		sb.WriteString(h.Name)
		sb.WriteString(": ")
		sb.WriteString(h.Value)
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")

	out := []byte(sb.String())
	if len(r.Body) > 0 {
		out = append(out, r.Body...)
	}
	return out, nil
}

// SplitForSendAllFirst returns the request bytes split into everything
// except the final byte, and that final byte — the withheld-last-byte
// shape spec.md §4.5 step 5 requires for sync_mechanism=send_all_first.
// Grounded on other_examples' race_request.go executeRace, which writes
// rawRequest[:len(rawRequest)-1] then the trailing byte under a gate.
func SplitForSendAllFirst(rendered []byte) (prefix, lastByte []byte) {
	if len(rendered) == 0 {
		return rendered, nil
	}
	return rendered[:len(rendered)-1], rendered[len(rendered)-1:]
}

// bufioReaderSize keeps per-worker response buffering predictable under
// a large N race burst.
const bufioReaderSize = 32 * 1024
