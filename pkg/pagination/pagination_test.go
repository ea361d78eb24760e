package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/"+query, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor(t, "")
	if p.Limit != DefaultLimit {
		t.Errorf("expected limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := paramsFor(t, "?limit=50&offset=10")
	if p.Limit != 50 || p.Offset != 10 {
		t.Errorf("expected 50/10, got %d/%d", p.Limit, p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	if p := paramsFor(t, "?limit=500"); p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeOffset(t *testing.T) {
	if p := paramsFor(t, "?offset=-5"); p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 50, Params{Limit: 20, Offset: 0})
	if resp.Total != 50 || !resp.HasMore {
		t.Errorf("unexpected response %+v", resp)
	}
	last := NewResponse([]string{"a"}, 50, Params{Limit: 20, Offset: 40})
	if last.HasMore {
		t.Error("expected no more results on last page")
	}
}

func TestParams_PreviousOffset(t *testing.T) {
	tests := []struct {
		p    Params
		want int
	}{
		{Params{Limit: 10, Offset: 25}, 15},
		{Params{Limit: 10, Offset: 5}, 0},
		{Params{Limit: 10, Offset: 0}, 0},
	}
	for _, tt := range tests {
		if got := tt.p.PreviousOffset(); got != tt.want {
			t.Errorf("PreviousOffset(%+v) = %d, want %d", tt.p, got, tt.want)
		}
	}
}

func TestWithLinks_MiddlePage(t *testing.T) {
	resp := NewResponse(nil, 25, Params{Limit: 10, Offset: 10}).WithLinks("/api/v1/encounters")
	l := resp.Links
	if l.Self != "/api/v1/encounters?limit=10&offset=10" {
		t.Errorf("unexpected self %q", l.Self)
	}
	if l.Next != "/api/v1/encounters?limit=10&offset=20" {
		t.Errorf("unexpected next %q", l.Next)
	}
	if l.Prev != "/api/v1/encounters?limit=10&offset=0" {
		t.Errorf("unexpected prev %q", l.Prev)
	}
}

func TestWithLinks_SinglePage(t *testing.T) {
	l := NewResponse(nil, 3, Params{Limit: 10}).WithLinks("/x").Links
	if l.Next != "" || l.Prev != "" {
		t.Errorf("expected no neighbours, got %+v", l)
	}
}
