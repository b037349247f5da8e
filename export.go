/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"gopkg.in/yaml.v3"
)

var ErrExportFormat = errors.New("unsupported export format")

// exportDocument is what the "save" action downloads. It is never read back.
type exportDocument struct {
	ID        string    `json:"id" yaml:"id"`
	Wheel     string    `json:"wheel" yaml:"wheel"`
	Names     []string  `json:"names" yaml:"names"`
	Winner    string    `json:"winner,omitempty" yaml:"winner,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

func newExportDocument(wheelID string, names []string, winner string, now time.Time) exportDocument {
	if names == nil {
		names = []string{}
	}

	return exportDocument{
		ID:        uuid.NewString(),
		Wheel:     wheelID,
		Names:     names,
		Winner:    winner,
		Timestamp: now.UTC().Truncate(time.Second),
	}
}

// encode renders the document, returning the body and its content type.
func (d exportDocument) encode(format string) ([]byte, string, error) {
	switch strings.ToLower(format) {
	case "", "json":
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return nil, "", err
		}
		return append(data, '\n'), "application/json; charset=utf-8", nil
	case "yaml", "yml":
		data, err := yaml.Marshal(d)
		if err != nil {
			return nil, "", err
		}
		return data, "application/yaml; charset=utf-8", nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrExportFormat, format)
	}
}

func serveExport(cfg *Config, wm *WheelManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		wheelID := ps.ByName("wheelid")
		hub, ok := wm.lookup(wheelID)
		if !ok {
			http.NotFound(w, r)
			return
		}

		format := r.URL.Query().Get("format")

		doc := hub.export(startTime)

		data, contentType, err := doc.encode(format)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename(wheelID, doc.Timestamp, format)+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		written, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		wm.metrics.exports.WithLabelValues(exportExtension(format)).Inc()

		logf(cfg, "WHEEL: Exported %s (%s) to %s in %s",
			wheelID,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}
