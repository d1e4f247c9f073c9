/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const maxRequestBytes = 1 << 20

type createSessionRequest struct {
	Capacity  int    `json:"capacity"`
	MaxGuests int    `json:"maxGuests"` // older clients
	Category  string `json:"category,omitempty"`
	Cards     []Card `json:"cards,omitempty"`
	Identity  string `json:"identity"`
	Name      string `json:"name"`
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
	Code      string `json:"code"`
	Capacity  int    `json:"capacity"`
	CardCount int    `json:"cardCount"`
}

type joinSessionRequest struct {
	Code     string `json:"code"`
	Identity string `json:"identity"`
	Name     string `json:"name"`
}

type joinSessionResponse struct {
	SessionID string `json:"sessionId"`
	Code      string `json:"code"`
	IsHost    bool   `json:"isHost"`
}

type startSessionResponse struct {
	Success bool   `json:"success"`
	Cards   []Card `json:"cards"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors to a status code and a message fit to show
// to the person who made the request.
func writeError(cfg *Config, w http.ResponseWriter, r *http.Request, err error) {
	var (
		status  int
		message string
		verr    *ValidationError
	)

	switch {
	case errors.As(err, &verr):
		status, message = http.StatusBadRequest, verr.Error()
	case errors.Is(err, ErrNotFound):
		status, message = http.StatusNotFound, "Session not found. Check the code and try again."
	case errors.Is(err, ErrSessionFull):
		status, message = http.StatusConflict, "This session is full."
	case errors.Is(err, ErrInvalidState):
		status, message = http.StatusConflict, "This session has already started or finished."
	case errors.Is(err, ErrCodeSpaceExhausted):
		status, message = http.StatusServiceUnavailable, "No session codes are available right now. Please try again later."
	default:
		status, message = http.StatusInternalServerError, "An error has occurred. Please try again."
	}

	logf(cfg, "SERVE: %s %s from %s failed: %v", r.Method, r.URL.Path, realIP(r), err)

	writeJSON(cfg, w, status, errorResponse{Error: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return invalid("request body", err.Error())
	}

	return nil
}

func resolveDeck(cfg *Config, catalog *Catalog, req createSessionRequest) ([]Card, error) {
	if len(req.Cards) > 0 {
		return req.Cards, nil
	}

	category := req.Category
	if category == "" {
		category = cfg.defaultCategory
	}

	deck, err := catalog.Deck(category)
	if errors.Is(err, ErrNotFound) {
		return nil, invalid("category", "unknown category "+category)
	}

	return deck, err
}

func serveCreateSession(cfg *Config, e *Engine, catalog *Catalog) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req createSessionRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(cfg, w, r, err)
			return
		}

		capacity := req.Capacity
		if capacity == 0 {
			capacity = req.MaxGuests
		}

		deck, err := resolveDeck(cfg, catalog, req)
		if err != nil {
			writeError(cfg, w, r, err)
			return
		}

		id, code, err := e.CreateSession(capacity, deck, req.Identity, req.Name)
		if err != nil {
			writeError(cfg, w, r, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, createSessionResponse{
			SessionID: id,
			Code:      code,
			Capacity:  capacity,
			CardCount: len(deck),
		})
	}
}

func serveJoinSession(cfg *Config, e *Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req joinSessionRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(cfg, w, r, err)
			return
		}

		id, isHost, err := e.JoinSession(req.Code, req.Identity, req.Name)
		if err != nil {
			writeError(cfg, w, r, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, joinSessionResponse{
			SessionID: id,
			Code:      normalizeCode(req.Code),
			IsHost:    isHost,
		})
	}
}

func serveSessionSummary(cfg *Config, e *Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		summary, err := e.Summary(p.ByName("id"))
		if err != nil {
			writeError(cfg, w, r, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, summary)
	}
}

func serveStartSession(cfg *Config, e *Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		cards, err := e.StartSession(p.ByName("id"))
		if err != nil {
			writeError(cfg, w, r, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, startSessionResponse{
			Success: true,
			Cards:   cards,
		})
	}
}

func serveCategories(cfg *Config, catalog *Catalog) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(cfg, w, http.StatusOK, catalog.Categories())
	}
}

// joinURL is the address a guest opens to join with code prefilled.
func joinURL(cfg *Config, r *http.Request, code string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     cfg.prefix + "/",
		RawQuery: url.Values{"code": {code}}.Encode(),
	}

	return u.String()
}

// serveQR renders a PNG QR code pointing guests at the session's join URL.
func serveQR(cfg *Config, e *Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		summary, err := e.Summary(p.ByName("id"))
		if err != nil {
			writeError(cfg, w, r, err)
			return
		}

		const qrSize = 320
		png, err := qrcode.Encode(joinURL(cfg, r, summary.Code), qrcode.Medium, qrSize)
		if err != nil {
			writeError(cfg, w, r, err)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(png)
	}
}

// registerSessionAPI sets up routes so that:
//   - POST $prefix/api/sessions           → create a session
//   - POST $prefix/api/join               → join by code
//   - GET  $prefix/api/sessions/:id       → session summary
//   - POST $prefix/api/sessions/:id/start → start swiping
//   - GET  $prefix/api/sessions/:id/qr    → PNG QR code of the join URL
//   - GET  $prefix/api/categories         → available decks
//   - GET  $prefix/ws                     → real-time websocket
func registerSessionAPI(cfg *Config, e *Engine, catalog *Catalog, mux *httprouter.Router) {
	mux.POST(cfg.prefix+"/api/sessions", serveCreateSession(cfg, e, catalog))
	mux.POST(cfg.prefix+"/api/join", serveJoinSession(cfg, e))
	mux.GET(cfg.prefix+"/api/sessions/:id", serveSessionSummary(cfg, e))
	mux.POST(cfg.prefix+"/api/sessions/:id/start", serveStartSession(cfg, e))
	mux.GET(cfg.prefix+"/api/sessions/:id/qr", serveQR(cfg, e))

	mux.GET(cfg.prefix+"/api/categories", serveCategories(cfg, catalog))

	mux.GET(cfg.prefix+"/ws", serveWS(cfg, e))
}
