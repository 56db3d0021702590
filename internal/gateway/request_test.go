package gateway

import (
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestReadInbound(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		wantAppKey string
		wantBody   int
	}{
		{"query only", "/x?app_key=q", "", "q", 0},
		{"body only", "/x", `{"app_key":"b","n":1}`, "b", 2},
		{"query wins over body", "/x?app_key=q", `{"app_key":"b"}`, "q", 1},
		{"malformed body is empty", "/x", `{"app_key":`, "", 0},
		{"array body is empty", "/x", `["app_key"]`, "", 0},
		{"null body is empty", "/x", `null`, "", 0},
		{"numeric value", "/x", `{"app_key":42}`, "42", 1},
		{"large numeric value", "/x", `{"app_key":9007199254740993}`, "9007199254740993", 1},
		{"trailing data is empty", "/x", `{"app_key":"b"} x`, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", tt.target, strings.NewReader(tt.body))
			in := readInbound(r)

			assert.Equal(t, tt.wantAppKey, in.param(ParamAppKey))
			assert.Len(t, in.body, tt.wantBody)
			assert.NotNil(t, in.body)
		})
	}
}

func TestReadInboundKeepsNumbersExact(t *testing.T) {
	r := httptest.NewRequest("POST", "/x", strings.NewReader(`{"order_id":9007199254740993,"amount":0.1000000000000000055511151231257827}`))
	in := readInbound(r)

	assert.Equal(t, json.Number("9007199254740993"), in.body["order_id"])
	assert.Equal(t, json.Number("0.1000000000000000055511151231257827"), in.body["amount"])
}

func TestInjectTokenQuery(t *testing.T) {
	query := url.Values{"app_key": {"k"}}
	body := map[string]any{"name": "x", "token": "spoofed"}

	q, b := injectToken(query, body, "gw")

	assert.Equal(t, "gw", q.Get("token"))
	assert.NotContains(t, b, "token")
	assert.Equal(t, "x", b["name"])
	// inputs are left untouched
	assert.Empty(t, query.Get("token"))
	assert.Equal(t, "spoofed", body["token"])
}

func TestInjectTokenBody(t *testing.T) {
	q, b := injectToken(url.Values{}, map[string]any{}, "gw")

	assert.Empty(t, q)
	assert.Equal(t, "gw", b["token"])
}

func TestInjectTokenIsExclusive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		query := url.Values{}
		for _, k := range rapid.SliceOfDistinct(rapid.StringMatching(`[a-z_]{1,8}`), rapid.ID[string]).Draw(t, "query") {
			query.Set(k, "v")
		}
		body := map[string]any{}
		for _, k := range rapid.SliceOfDistinct(rapid.StringMatching(`[a-z_]{1,8}`), rapid.ID[string]).Draw(t, "body") {
			body[k] = "v"
		}

		q, b := injectToken(query, body, "gw")

		_, inQuery := q["token"]
		_, inBody := b["token"]
		if inQuery == inBody {
			t.Fatalf("token in query=%v body=%v, want exactly one", inQuery, inBody)
		}
		if inQuery != (len(query) > 0) {
			t.Fatalf("token placed in query=%v with %d query params", inQuery, len(query))
		}
	})
}
