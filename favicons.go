/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
)

// A six-slice wheel under a top pointer.
const faviconSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64">` +
	`<g transform="translate(32 34)">` +
	`<path d="M0 0L0-28A28 28 0 0 1 24.25-14Z" fill="#e63946"/>` +
	`<path d="M0 0L24.25-14A28 28 0 0 1 24.25 14Z" fill="#f4a261"/>` +
	`<path d="M0 0L24.25 14A28 28 0 0 1 0 28Z" fill="#e9c46a"/>` +
	`<path d="M0 0L0 28A28 28 0 0 1-24.25 14Z" fill="#2a9d8f"/>` +
	`<path d="M0 0L-24.25 14A28 28 0 0 1-24.25-14Z" fill="#457b9d"/>` +
	`<path d="M0 0L-24.25-14A28 28 0 0 1 0-28Z" fill="#8338ec"/>` +
	`<circle r="5" fill="#fff"/></g>` +
	`<path d="M26 0H38L32 10Z" fill="#222"/></svg>`

func getFavicon(cfg *Config) string {
	return `<link rel="icon" type="image/svg+xml" href="` + cfg.prefix + `/favicon.svg">
	<meta name="theme-color" content="#ffffff">`
}

func serveFavicon(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Header().Set("Expires", time.Now().Add(24*time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(faviconSVG)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(faviconSVG))
		if err != nil {
			errs <- err

			return
		}
	}
}
