// Package web serves the valuation journal over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/pricebench/internal/storage/valuations"
)

const journalPollInterval = 2 * time.Second

type valuationReader interface {
	RecordsAfter(index uint64) ([]valuations.Entry, error)
}

// Server exposes the journal as JSON and as an SSE stream, plus a small HTML page.
type Server struct {
	Addr   string
	Store  valuationReader
	logger *zap.Logger

	pollInterval time.Duration
}

func NewServer(addr string, store valuationReader, logger *zap.Logger) *Server {
	return &Server{Addr: addr, Store: store, logger: logger, pollInterval: journalPollInterval}
}

// Handler routes of the dashboard.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/valuations", s.handleValuations)
	mux.HandleFunc("/valuations/stream", s.handleValuationStream)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("dashboard listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleValuations(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "valuation journal not available")
		return
	}

	var after uint64
	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid 'after' param", http.StatusBadRequest)
			return
		}
		after = n
	}

	entries, err := s.Store.RecordsAfter(after)
	if err != nil {
		s.logger.Error("failed to read valuation journal", zap.Error(err))
		http.Error(w, "failed to load valuations", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []valuations.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		s.logger.Error("failed to encode valuations", zap.Error(err))
	}
}

func (s *Server) handleValuationStream(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "valuation journal not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// comment heartbeat so proxies keep the connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(s.pollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendValuations := func() error {
		entries, err := s.Store.RecordsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			payload, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: valuation\n")
			fmt.Fprintf(w, "id: %d\n", entry.Index)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			lastIndex = entry.Index
		}
		if len(entries) > 0 {
			flusher.Flush()
		}
		return nil
	}

	if err := sendValuations(); err != nil {
		http.Error(w, "failed to load valuations", http.StatusInternalServerError)
		s.logger.Error("valuation stream initial load", zap.Error(err))
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendValuations(); err != nil {
				s.logger.Warn("valuation stream poll", zap.Error(err))
			}
		}
	}
}

const indexHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>pricebench</title>
<style>
body{font-family:ui-monospace,Menlo,monospace;background:#0f1115;color:#d8dee9;margin:2rem}
table{border-collapse:collapse;min-width:60rem}
th,td{padding:.35rem .8rem;text-align:right;border-bottom:1px solid #2e3440}
th:first-child,td:first-child{text-align:left}
tr.failed td{color:#bf616a}
.run{color:#81a1c1;margin:1.5rem 0 .5rem}
</style>
</head>
<body>
<h1>pricebench</h1>
<div id="runs"></div>
<script>
const runs = new Map();

function fmt(v, dp){ return Number(v).toFixed(dp); }

function ensureRun(id){
  if (runs.has(id)) return runs.get(id);
  const wrap = document.createElement('div');
  wrap.innerHTML = '<div class="run">run ' + id + '</div>' +
    '<table><thead><tr><th>method</th><th>engine</th><th>value</th>' +
    '<th>estimated error</th><th>actual error</th><th>elapsed</th></tr></thead><tbody></tbody></table>';
  document.getElementById('runs').prepend(wrap);
  const body = wrap.querySelector('tbody');
  runs.set(id, body);
  return body;
}

function addRow(entry){
  const rec = entry.record;
  const body = ensureRun(rec.run_id);
  const tr = document.createElement('tr');
  const cells = rec.error
    ? [rec.label, rec.engine, 'failed', 'n/a', rec.error, '']
    : [rec.label, rec.engine, fmt(rec.value, 5),
       rec.has_error_estimate ? fmt(rec.error_estimate, 4) : 'n/a',
       fmt(Math.abs(rec.value - rec.reference), 6),
       (rec.elapsed / 1e6).toFixed(1) + ' ms'];
  if (rec.error) tr.className = 'failed';
  for (const c of cells){
    const td = document.createElement('td');
    td.textContent = c;
    tr.appendChild(td);
  }
  body.appendChild(tr);
}

const source = new EventSource('/valuations/stream');
source.addEventListener('valuation', ev => addRow(JSON.parse(ev.data)));
</script>
</body>
</html>
`
