package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wonny/overnight/internal/contracts"
	"github.com/wonny/overnight/pkg/config"
	"github.com/wonny/overnight/pkg/logger"
)

func TestParseQuote(t *testing.T) {
	date := time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		body    string
		want    contracts.Quote
		wantErr bool
	}{
		{
			name: "single-quoted rows with header",
			body: `[['날짜', '시가', '고가', '저가', '종가', '거래량'],
["20260213", 71000, 72000, 70500, 71500, 12000000],
["20260216", 71500, 73200, 71300, 72800, 13500000]]`,
			want: contracts.Quote{Open: 71500, Close: 72800},
		},
		{
			name: "string prices",
			body: `[["날짜", "시가", "고가", "저가", "종가", "거래량"],
["20260216", "71500", "73200", "71300", "72800", "13500000"]]`,
			want: contracts.Quote{Open: 71500, Close: 72800},
		},
		{
			name:    "no row for the requested date",
			body:    `[["날짜", "시가", "고가", "저가", "종가", "거래량"], ["20260213", 71000, 72000, 70500, 71500, 12000000]]`,
			wantErr: true,
		},
		{
			name:    "header only",
			body:    `[["날짜", "시가", "고가", "저가", "종가", "거래량"]]`,
			wantErr: true,
		},
		{
			name:    "not json",
			body:    `<html>maintenance</html>`,
			wantErr: true,
		},
		{
			name:    "zero open price",
			body:    `[["날짜", "시가", "고가", "저가", "종가", "거래량"], ["20260216", 0, 73200, 71300, 72800, 13500000]]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseQuote(tt.body, date)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseQuote() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got != tt.want {
				t.Errorf("parseQuote() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := &config.Config{
		LogLevel: "error",
		MarketData: config.MarketDataConfig{
			BaseURL: baseURL,
			Timeout: 2 * time.Second,
		},
	}
	return New(cfg, logger.New(cfg), nil, nil)
}

func TestGetOpenClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/siseJson.naver" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("symbol"); got != "005930" {
			t.Errorf("symbol = %q, want 005930", got)
		}
		w.Write([]byte(`[['날짜', '시가', '고가', '저가', '종가', '거래량'],
["20260216", 71500, 73200, 71300, 72800, 13500000]]`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	quote, err := c.GetOpenClose(context.Background(), "005930", time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetOpenClose() error = %v", err)
	}
	if quote.Open != 71500 || quote.Close != 72800 {
		t.Errorf("GetOpenClose() = %+v, want open 71500 close 72800", quote)
	}
}

func TestGetOpenClose_MissingRowIsDataUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[['날짜', '시가', '고가', '저가', '종가', '거래량']]`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.GetOpenClose(context.Background(), "005930", time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, contracts.ErrDataUnavailable) {
		t.Errorf("error = %v, want ErrDataUnavailable", err)
	}
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
	}{
		{71500.0, 71500},
		{"71500", 71500},
		{`"71500"`, 71500},
		{nil, 0},
		{true, 0},
	}

	for _, tt := range tests {
		if got := toFloat(tt.in); got != tt.want {
			t.Errorf("toFloat(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
