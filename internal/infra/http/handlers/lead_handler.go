package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seedlane/outreach/internal/entity"
	"github.com/seedlane/outreach/internal/usecase"
)

type LeadHandler struct {
	importUC    *usecase.ImportLeadUseCase
	leads       usecase.LeadRepository
	rateLimiter *RateLimiter
}

func NewLeadHandler(importUC *usecase.ImportLeadUseCase, leads usecase.LeadRepository) *LeadHandler {
	return &LeadHandler{
		importUC:    importUC,
		leads:       leads,
		rateLimiter: NewRateLimiter(30, time.Minute), // 30 req/min por IP
	}
}

type ImportLeadResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Message string `json:"message,omitempty"`
}

// HandleImport cria um lead novo. Email repetido não é erro: responde
// 200 com skipped=true.
func (h *LeadHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	clientIP := getClientIP(r)
	if !h.rateLimiter.Allow(clientIP) {
		writeJSON(w, http.StatusTooManyRequests, ImportLeadResponse{
			Success: false,
			Message: "Too many requests. Please try again later.",
		})
		return
	}

	var input usecase.ImportLeadInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, ImportLeadResponse{
			Success: false,
			Message: "Invalid JSON",
		})
		return
	}

	output, err := h.importUC.Execute(ctx, input)
	if err != nil {
		if usecase.IsDomainError(err) {
			writeJSON(w, http.StatusBadRequest, ImportLeadResponse{
				Success: false,
				Message: err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ImportLeadResponse{
			Success: false,
			Message: "Failed to import lead",
		})
		return
	}

	writeJSON(w, http.StatusOK, ImportLeadResponse{
		Success: true,
		ID:      output.ID,
		Skipped: output.Skipped,
	})
}

// HandleGet retorna o estado atual de um lead pelo email.
func (h *LeadHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	lead, err := h.leads.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "lead not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}

	writeJSON(w, http.StatusOK, lead)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}

type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
}

type visitor struct {
	count     int
	lastReset time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
	}

	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	now := time.Now()

	if !exists {
		rl.visitors[ip] = &visitor{count: 1, lastReset: now}
		return true
	}

	if now.Sub(v.lastReset) > rl.window {
		v.count = 1
		v.lastReset = now
		return true
	}

	v.count++
	return v.count <= rl.limit
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, v := range rl.visitors {
			if now.Sub(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}
