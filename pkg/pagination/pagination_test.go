package pagination

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversions"+query, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", DefaultLimit, 0},
		{"?limit=5&offset=10", 5, 10},
		{"?limit=1000", MaxLimit, 0},
		{"?limit=-3&offset=-1", DefaultLimit, 0},
		{"?limit=abc&offset=xyz", DefaultLimit, 0},
	}
	for _, tt := range tests {
		p := paramsFor(t, tt.query)
		if p.Limit != tt.limit || p.Offset != tt.offset {
			t.Errorf("FromContext(%q) = %+v, want limit=%d offset=%d", tt.query, p, tt.limit, tt.offset)
		}
	}
}

func TestParams_Navigation(t *testing.T) {
	p := Params{Limit: 10, Offset: 15}
	if !p.HasNext(30) || p.HasNext(25) {
		t.Error("HasNext mismatch")
	}
	if !p.HasPrevious() || (Params{Limit: 10}).HasPrevious() {
		t.Error("HasPrevious mismatch")
	}
	if p.NextOffset() != 25 {
		t.Errorf("NextOffset = %d", p.NextOffset())
	}
	if p.PreviousOffset() != 5 {
		t.Errorf("PreviousOffset = %d", p.PreviousOffset())
	}
	if (Params{Limit: 10, Offset: 3}).PreviousOffset() != 0 {
		t.Error("PreviousOffset should clamp at 0")
	}
}

func TestNewResponse(t *testing.T) {
	r := NewResponse([]string{"a", "b"}, 5, Params{Limit: 2, Offset: 0})
	if r.Total != 5 || r.Limit != 2 || r.Offset != 0 || !r.HasMore {
		t.Errorf("unexpected response: %+v", r)
	}

	r = NewResponse([]string{"e"}, 5, Params{Limit: 2, Offset: 4})
	if r.HasMore {
		t.Error("last page should not have more")
	}
}

func TestResponse_WithLinks(t *testing.T) {
	query := url.Values{"code": {"UnsupportedFunction"}}
	r := NewResponse(nil, 50, Params{Limit: 10, Offset: 20}).WithLinks("/api/v1/conversions", query)

	if r.Links == nil {
		t.Fatal("expected links")
	}
	if r.Links.Next != "/api/v1/conversions?code=UnsupportedFunction&limit=10&offset=30" {
		t.Errorf("next = %q", r.Links.Next)
	}
	if r.Links.Previous != "/api/v1/conversions?code=UnsupportedFunction&limit=10&offset=10" {
		t.Errorf("previous = %q", r.Links.Previous)
	}
	if query.Get("limit") != "" {
		t.Error("caller query must not be modified")
	}
}

func TestResponse_WithLinks_SinglePage(t *testing.T) {
	r := NewResponse(nil, 3, Params{Limit: 10}).WithLinks("/x", nil)
	if r.Links != nil {
		t.Errorf("expected no links, got %+v", r.Links)
	}
}
