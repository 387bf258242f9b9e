package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/jddeal/go-radolan/catalog"
	"github.com/jddeal/go-radolan/composite"
	"github.com/jddeal/go-radolan/dx"
)

type gridResponse struct {
	Metadata *composite.Metadata `json:"metadata"`
	Rows     int                 `json:"rows"`
	Cols     int                 `json:"cols"`
	Data     interface{}         `json:"data"`
}

type scanResponse struct {
	*dx.Scan
	DBZ [][]float64 `json:"dbz,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) listHandler(w http.ResponseWriter, req *http.Request) {
	product := mux.Vars(req)["product"]

	entries, err := s.catalog.List(req.Context(), product)
	if err != nil {
		s.metrics.CatalogErrors.Inc()
		s.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) metaHandler(w http.ResponseWriter, req *http.Request) {
	e, err := resolve(mux.Vars(req))
	if err != nil {
		s.writeError(w, req, err)
		return
	}

	// DX has no header-only path, its header comes from the (cached) scan
	if e.Product == "DX" {
		d, err := s.load(req.Context(), e)
		if err != nil {
			s.writeError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, d.scan.Header)
		return
	}

	if d, ok := s.cache.get(e.Name); ok {
		meta := *d.meta
		meta.NoDataFlag = nil
		meta.Masks = nil
		writeJSON(w, http.StatusOK, &meta)
		return
	}

	d, err := s.decode(req.Context(), e, false)
	if err != nil {
		s.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, d.meta)
}

func (s *Server) gridHandler(w http.ResponseWriter, req *http.Request) {
	e, err := resolve(mux.Vars(req))
	if err != nil {
		s.writeError(w, req, err)
		return
	}

	scaled := false
	if v := req.URL.Query().Get("scaled"); v != "" {
		if scaled, err = strconv.ParseBool(v); err != nil {
			http.Error(w, "Invalid scaled", http.StatusBadRequest)
			return
		}
	}

	d, err := s.load(req.Context(), e)
	if err != nil {
		s.writeError(w, req, err)
		return
	}

	if d.scan != nil {
		resp := scanResponse{Scan: d.scan}
		if scaled {
			resp.DBZ = d.scan.DBZ()
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp := gridResponse{
		Metadata: d.meta,
		Rows:     d.grid.Rows,
		Cols:     d.grid.Cols,
		Data:     d.grid.Data,
	}
	if scaled {
		values, err := d.grid.Physical(d.meta, float64(s.missing))
		if err != nil {
			s.writeError(w, req, err)
			return
		}
		resp.Data = values
	}
	writeJSON(w, http.StatusOK, resp)
}

// resolve checks that name is a DWD file name of product.
func resolve(vars map[string]string) (catalog.Entry, error) {
	e, ok := catalog.ParseName(vars["name"])
	if !ok || !strings.EqualFold(e.Product, vars["product"]) {
		return catalog.Entry{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, vars["name"])
	}
	return e, nil
}

// load returns the fully decoded file, from the cache when possible.
func (s *Server) load(ctx context.Context, e catalog.Entry) (*decoded, error) {
	if d, ok := s.cache.get(e.Name); ok {
		s.metrics.Cache.WithLabelValues("hit").Inc()
		return d, nil
	}
	s.metrics.Cache.WithLabelValues("miss").Inc()

	start := time.Now()
	d, err := s.decode(ctx, e, true)
	s.metrics.DecodeDuration.WithLabelValues(e.Product).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.Decodes.WithLabelValues(e.Product, "error").Inc()
		return nil, err
	}
	s.metrics.Decodes.WithLabelValues(e.Product, "ok").Inc()

	s.cache.put(e.Name, d)
	return d, nil
}

func (s *Server) decode(ctx context.Context, e catalog.Entry, loadData bool) (*decoded, error) {
	rc, err := s.catalog.Open(ctx, e.Name)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			s.metrics.CatalogErrors.Inc()
		}
		return nil, err
	}
	defer rc.Close()

	r, err := composite.Decompress(rc)
	if err != nil {
		return nil, err
	}
	if closer, ok := r.(io.Closer); ok {
		defer closer.Close()
	}

	if e.Product == "DX" {
		scan, err := dx.Decode(r)
		if err != nil {
			return nil, err
		}
		return &decoded{scan: scan}, nil
	}

	grid, meta, err := composite.Decode(r, s.missing, loadData)
	if err != nil {
		return nil, err
	}
	return &decoded{meta: meta, grid: grid}, nil
}

// isDecodeError reports whether err means the file itself could not be decoded.
func isDecodeError(err error) bool {
	var (
		malformed *composite.MalformedHeaderError
		unknown   *composite.UnknownProductTypeError
		rle       *composite.RLEDecodeError
		truncated *composite.TruncatedPayloadError
		dims      *composite.DimensionError
		corrupt   *composite.CompressionError
		beam      *dx.BeamError
	)
	return errors.As(err, &malformed) ||
		errors.As(err, &unknown) ||
		errors.As(err, &rle) ||
		errors.As(err, &truncated) ||
		errors.As(err, &dims) ||
		errors.As(err, &corrupt) ||
		errors.As(err, &beam)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case isDecodeError(err):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, req *http.Request, err error) {
	status := statusFor(err)
	log := loggerFrom(req.Context()).WithError(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed")
	} else {
		log.Info("could not read any data")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
