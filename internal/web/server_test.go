package web

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/pricebench/internal/storage/valuations"
)

type stubReader struct {
	entries []valuations.Entry
	err     error
}

func (s stubReader) RecordsAfter(index uint64) ([]valuations.Entry, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []valuations.Entry
	for _, e := range s.entries {
		if e.Index > index {
			out = append(out, e)
		}
	}
	return out, nil
}

func journal() stubReader {
	return stubReader{entries: []valuations.Entry{
		{Index: 1, Record: valuations.Record{RunID: "r1", Seq: 0, Label: "analytic", Engine: "analytic", Value: 0.0300238}},
		{Index: 2, Record: valuations.Record{RunID: "r1", Seq: 1, Label: "MC (crude)", Value: 0.031, ErrorEstimate: 0.003, HasErrorEstimate: true}},
	}}
}

func TestServer_Valuations(t *testing.T) {
	srv := NewServer(":0", journal(), zap.NewNop())

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLabels []string
	}{
		{name: "all", query: "", wantStatus: http.StatusOK, wantLabels: []string{"analytic", "MC (crude)"}},
		{name: "after index", query: "?after=1", wantStatus: http.StatusOK, wantLabels: []string{"MC (crude)"}},
		{name: "nothing new", query: "?after=2", wantStatus: http.StatusOK, wantLabels: []string{}},
		{name: "bad index", query: "?after=x", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/valuations"+tt.query, nil))
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var entries []valuations.Entry
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
			labels := []string{}
			for _, e := range entries {
				labels = append(labels, e.Record.Label)
			}
			assert.Equal(t, tt.wantLabels, labels)
		})
	}
}

func TestServer_Unavailable(t *testing.T) {
	srv := NewServer(":0", nil, zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/valuations", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	srv = NewServer(":0", stubReader{err: errors.New("disk gone")}, zap.NewNop())
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/valuations", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_Index(t *testing.T) {
	srv := NewServer(":0", journal(), zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/valuations/stream")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Stream(t *testing.T) {
	srv := NewServer(":0", journal(), zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/valuations/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var payloads []string
	scanner := bufio.NewScanner(resp.Body)
	for len(payloads) < 2 && scanner.Scan() {
		if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
			payloads = append(payloads, data)
		}
	}
	require.Len(t, payloads, 2)

	var entry valuations.Entry
	require.NoError(t, json.Unmarshal([]byte(payloads[1]), &entry))
	assert.Equal(t, uint64(2), entry.Index)
	assert.True(t, entry.Record.HasErrorEstimate)
}
