package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// Parameter names read from the caller's query or body.
const (
	ParamAppKey     = "app_key"
	ParamSessionID  = "session_id"
	ParamInstanceID = "instance_id"
	ParamToken      = "token"
)

// maxBodyBytes bounds the inbound body read into memory.
const maxBodyBytes = 10 << 20

// inbound is the caller's request as seen by the pipeline.
type inbound struct {
	query url.Values
	body  map[string]any
}

// readInbound parses the query and the JSON body. A missing, oversized,
// malformed or non-object body is treated as an empty object. Numbers are
// kept as json.Number so they are forwarded digit for digit.
func readInbound(r *http.Request) inbound {
	in := inbound{
		query: r.URL.Query(),
		body:  map[string]any{},
	}

	if r.Body == nil || r.Body == http.NoBody {
		return in
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil || len(data) == 0 || len(data) > maxBodyBytes {
		return in
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil || body == nil {
		return in
	}
	// trailing garbage after the object
	if dec.More() {
		return in
	}
	in.body = body
	return in
}

// param returns name from the query, falling back to the body.
func (in inbound) param(name string) string {
	if v := in.query.Get(name); v != "" {
		return v
	}

	switch v := in.body[name].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// injectToken returns copies of query and body with the gateway token added
// to exactly one of them: the query when the caller sent any query
// parameter, the body otherwise.
func injectToken(query url.Values, body map[string]any, token string) (url.Values, map[string]any) {
	q := make(url.Values, len(query)+1)
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}

	b := make(map[string]any, len(body)+1)
	for k, v := range body {
		b[k] = v
	}

	if len(q) > 0 {
		q.Set(ParamToken, token)
		delete(b, ParamToken)
	} else {
		b[ParamToken] = token
	}
	return q, b
}
