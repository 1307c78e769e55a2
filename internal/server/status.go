package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/folio/internal/version"
)

// Status is the JSON form of the status page.
type Status struct {
	Version string       `json:"version"`
	Clients int          `json:"clients"`
	Build   *BuildStatus `json:"build,omitempty"`
	Metrics *Metrics     `json:"metrics,omitempty"`
}

// BuildStatus describes the last rebuild.
type BuildStatus struct {
	ID       string    `json:"id"`
	Targets  string    `json:"targets"`
	Started  time.Time `json:"started"`
	Duration string    `json:"duration"`
	Files    []string  `json:"files"`
	Errors   []string  `json:"errors"`
}

// Metrics are the rebuild counters.
type Metrics struct {
	Total       int64   `json:"total"`
	Failed      int64   `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
	Average     string  `json:"average"`
}

func (s *Server) status() Status {
	st := Status{Version: version.GetShortVersion(), Clients: s.ClientCount()}

	if report := s.LastReport(); report != nil {
		bs := &BuildStatus{
			ID:       report.ID,
			Targets:  report.Targets.String(),
			Started:  report.Started,
			Duration: report.Duration.Round(time.Millisecond).String(),
			Files:    report.Files,
			Errors:   []string{},
		}
		for _, err := range report.Errors {
			bs.Errors = append(bs.Errors, err.Error())
		}
		st.Build = bs
	}

	if s.metrics != nil {
		snap := s.metrics.GetSnapshot()
		st.Metrics = &Metrics{
			Total:       snap.TotalBuilds,
			Failed:      snap.FailedBuilds,
			SuccessRate: s.metrics.GetSuccessRate(),
			Average:     snap.AverageDuration.Round(time.Millisecond).String(),
		}
	}

	return st
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	setNoCache(w)

	st := s.status()
	if r.URL.Query().Get("format") == "json" {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(st); err != nil {
			s.logger.Warn(r.Context(), err, "cannot encode status")
		}
		return
	}

	templ.Handler(statusPage(st)).ServeHTTP(w, r)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	templ.Handler(notFoundPage(r.URL.Path), templ.WithStatus(http.StatusNotFound)).ServeHTTP(w, r)
}

func statusPage(st Status) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>folio status</title></head><body>`)
		p.printf(`<h1>folio %s</h1><p>%d live-reload client(s)</p>`, templ.EscapeString(st.Version), st.Clients)

		if st.Build == nil {
			p.printf(`<p>No build has finished yet.</p>`)
		} else {
			b := st.Build
			p.printf(`<h2>Last build</h2><dl>`)
			p.printf(`<dt>id</dt><dd>%s</dd>`, templ.EscapeString(b.ID))
			p.printf(`<dt>targets</dt><dd>%s</dd>`, templ.EscapeString(b.Targets))
			p.printf(`<dt>started</dt><dd>%s</dd>`, b.Started.Format(time.RFC3339))
			p.printf(`<dt>duration</dt><dd>%s</dd></dl>`, templ.EscapeString(b.Duration))

			if len(b.Errors) > 0 {
				p.printf(`<h3>Errors</h3><ul class="errors">`)
				for _, e := range b.Errors {
					p.printf(`<li><pre>%s</pre></li>`, templ.EscapeString(e))
				}
				p.printf(`</ul>`)
			}
			p.printf(`<h3>Files</h3><ul class="files">`)
			for _, f := range b.Files {
				p.printf(`<li>%s</li>`, templ.EscapeString(f))
			}
			p.printf(`</ul>`)
		}

		if m := st.Metrics; m != nil {
			p.printf(`<h2>Builds</h2><p>%d total, %d failed, %.0f%% ok, %s average</p>`,
				m.Total, m.Failed, m.SuccessRate, templ.EscapeString(m.Average))
		}

		p.printf(`</body></html>`)
		return p.err
	})
}

func notFoundPage(path string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>404 Not Found</title></head><body>`)
		p.printf(`<h1>404 Not Found</h1><p>Nothing is built at <code>%s</code>.</p>`, templ.EscapeString(path))
		p.printf(`</body></html>`)
		return p.err
	})
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
