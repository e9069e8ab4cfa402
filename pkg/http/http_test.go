package http_test

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/soapboxsocial/fanout/pkg/http"
)

func TestGetInt(t *testing.T) {
	var tests = []struct {
		value        string
		expected     int
		defaultValue int
	}{
		{
			"poop",
			10,
			10,
		},
		{
			"1",
			1,
			10,
		},
		{
			"",
			10,
			10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {

			values := url.Values{}
			values.Set("key", tt.value)

			result := http.GetInt(values, "key", tt.defaultValue)
			if result != tt.expected {
				t.Fatalf("expected %d does not match actual %d", tt.expected, result)
			}
		})
	}
}

func TestJsonError(t *testing.T) {
	rr := httptest.NewRecorder()

	http.JsonError(rr, nethttp.StatusNotFound, http.ErrorCodeNotFound, "not found")

	if rr.Code != nethttp.StatusNotFound {
		t.Fatalf("unexpected status %d", rr.Code)
	}

	body := make(map[string]interface{})
	err := json.Unmarshal(rr.Body.Bytes(), &body)
	if err != nil {
		t.Fatal(err)
	}

	if body["message"] != "not found" {
		t.Fatalf("unexpected body %v", body)
	}
}
