package httpclient

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"raceforge/internal/models"
)

// Send writes a fully rendered request to conn and reads back a Response,
// applying readTimeout to the full round trip. It never retries and never
// follows redirects — a race worker fires exactly once per burst
// (spec.md §4.3, §4.5).
func Send(conn net.Conn, rendered []byte, readTimeout time.Duration) (*models.Response, error) {
	startedAt := time.Now()

	if readTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(readTimeout)); err != nil {
			return nil, models.NewError(models.KindHTTPError, "set deadline: %v", err)
		}
	}

	if _, err := conn.Write(rendered); err != nil {
		if isTimeout(err) {
			return nil, models.NewError(models.KindHTTPTimeout, "write: %v", err)
		}
		return nil, models.NewError(models.KindHTTPError, "write: %v", err)
	}

	resp, err := readResponse(conn, startedAt)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// SendSplit writes prefix immediately, signals onPrefixWritten, then
// blocks on release before writing lastByte — the send_all_first
// mechanism of spec.md §4.5 step 5. release is closed by the dispatcher
// once every worker in the burst has finished writing its prefix, so the
// final bytes land within the same scheduling window. onPrefixWritten
// must be called as soon as the prefix hits the wire (not after this
// function returns) so the dispatcher's barrier can actually close once
// every worker is parked on release, rather than once every worker has
// completed its full round trip.
func SendSplit(conn net.Conn, prefix, lastByte []byte, onPrefixWritten func(), release <-chan struct{}, readTimeout time.Duration) (*models.Response, error) {
	startedAt := time.Now()

	if readTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(readTimeout)); err != nil {
			onPrefixWritten()
			return nil, models.NewError(models.KindHTTPError, "set deadline: %v", err)
		}
	}

	if len(prefix) > 0 {
		if _, err := conn.Write(prefix); err != nil {
			onPrefixWritten()
			if isTimeout(err) {
				return nil, models.NewError(models.KindHTTPTimeout, "write prefix: %v", err)
			}
			return nil, models.NewError(models.KindHTTPError, "write prefix: %v", err)
		}
	}

	onPrefixWritten()
	<-release

	if len(lastByte) > 0 {
		if _, err := conn.Write(lastByte); err != nil {
			if isTimeout(err) {
				return nil, models.NewError(models.KindHTTPTimeout, "write final byte: %v", err)
			}
			return nil, models.NewError(models.KindHTTPError, "write final byte: %v", err)
		}
	}

	return readResponse(conn, startedAt)
}

func readResponse(conn net.Conn, startedAt time.Time) (*models.Response, error) {
	br := bufio.NewReaderSize(conn, bufioReaderSize)

	statusLine, err := br.ReadString('\n')
	if err != nil {
		return nil, classifyReadErr(err, "status line")
	}
	status, reason, proto, err := parseStatusLine(statusLine)
	if err != nil {
		return nil, err
	}
	_ = proto

	headers := make(map[string][]string)
	contentLength := -1
	chunked := false
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, classifyReadErr(err, "headers")
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}
		idx := strings.IndexByte(trimmed, ':')
		if idx == -1 {
			continue
		}
		name := strings.TrimSpace(trimmed[:idx])
		value := strings.TrimSpace(trimmed[idx+1:])
		headers[name] = append(headers[name], value)

		switch strings.ToLower(name) {
		case "content-length":
			if n, err := strconv.Atoi(value); err == nil {
				contentLength = n
			}
		case "transfer-encoding":
			if strings.Contains(strings.ToLower(value), "chunked") {
				chunked = true
			}
		}
	}

	var body []byte
	switch {
	case chunked:
		body, err = readChunkedBody(br)
	case contentLength > 0:
		body = make([]byte, contentLength)
		_, err = io.ReadFull(br, body)
	case contentLength == 0:
		body = nil
	default:
		// No framing header: read until EOF or timeout, same as the
		// teacher's attacker.go fallback for unframed bodies.
		body, err = io.ReadAll(br)
	}
	if err != nil {
		return nil, classifyReadErr(err, "body")
	}

	elapsed := time.Since(startedAt)
	return &models.Response{
		Status:      status,
		Reason:      reason,
		Headers:     headers,
		Body:        body,
		ElapsedMs:   float64(elapsed.Microseconds()) / 1000.0,
		StartedAtNs: startedAt.UnixNano(),
	}, nil
}

func readChunkedBody(br *bufio.Reader) ([]byte, error) {
	var out []byte
	for {
		sizeLine, err := br.ReadString('\n')
		if err != nil {
			return nil, err
		}
		sizeLine = strings.TrimSpace(sizeLine)
		if idx := strings.IndexByte(sizeLine, ';'); idx != -1 {
			sizeLine = sizeLine[:idx]
		}
		size, err := strconv.ParseInt(sizeLine, 16, 64)
		if err != nil {
			return nil, models.NewError(models.KindHTTPError, "bad chunk size %q: %v", sizeLine, err)
		}
		if size == 0 {
			// Trailing headers, if any, then the final CRLF.
			for {
				line, err := br.ReadString('\n')
				if err != nil {
					return nil, err
				}
				if strings.TrimRight(line, "\r\n") == "" {
					break
				}
			}
			return out, nil
		}
		chunk := make([]byte, size)
		if _, err := io.ReadFull(br, chunk); err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		// consume trailing CRLF after the chunk data
		if _, err := br.ReadString('\n'); err != nil {
			return nil, err
		}
	}
}

func parseStatusLine(line string) (status int, reason string, proto string, err error) {
	line = strings.TrimRight(line, "\r\n")
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return 0, "", "", models.NewError(models.KindHTTPError, "malformed status line %q", line)
	}
	code, convErr := strconv.Atoi(parts[1])
	if convErr != nil {
		return 0, "", "", models.NewError(models.KindHTTPError, "malformed status code %q", parts[1])
	}
	r := ""
	if len(parts) == 3 {
		r = parts[2]
	}
	return code, r, parts[0], nil
}

func classifyReadErr(err error, stage string) error {
	if isTimeout(err) {
		return models.NewError(models.KindHTTPTimeout, "read %s: %v", stage, err)
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return models.NewError(models.KindHTTPError, "read %s: connection closed: %v", stage, err)
	}
	return models.NewError(models.KindHTTPError, "read %s: %v", stage, err)
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}
