package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(target string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   Params
	}{
		{"defaults", "/api/audit-logs", Params{Page: 1, Limit: DefaultLimit}},
		{"explicit", "/api/audit-logs?page=3&limit=20", Params{Page: 3, Limit: 20}},
		{"capped", "/api/audit-logs?limit=1000", Params{Page: 1, Limit: MaxLimit}},
		{"negative page", "/api/audit-logs?page=-2", Params{Page: 1, Limit: DefaultLimit}},
		{"garbage", "/api/audit-logs?page=abc&limit=xyz", Params{Page: 1, Limit: DefaultLimit}},
		{"huge page", "/api/audit-logs?page=99999999999999999&limit=200", Params{Page: MaxPage, Limit: MaxLimit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := paramsFor(tt.target); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	if got := (Params{Page: 1, Limit: 50}).Offset(); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := (Params{Page: 3, Limit: 20}).Offset(); got != 40 {
		t.Errorf("expected 40, got %d", got)
	}
	if got := paramsFor("/api/audit-logs?page=99999999999999999&limit=200").Offset(); got < 0 {
		t.Errorf("expected non-negative offset for oversized page, got %d", got)
	}
}

func TestTotalPages(t *testing.T) {
	p := Params{Page: 1, Limit: 50}
	cases := map[int]int{0: 0, 1: 1, 50: 1, 51: 2, 200: 4}
	for total, want := range cases {
		if got := p.TotalPages(total); got != want {
			t.Errorf("TotalPages(%d) = %d, want %d", total, got, want)
		}
	}
	if !p.HasNext(51) {
		t.Error("expected next page for 51 rows")
	}
	if p.HasNext(50) {
		t.Error("expected no next page for 50 rows")
	}
}
