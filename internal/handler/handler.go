package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chingu-finance/scheduler/internal/config"
	"github.com/chingu-finance/scheduler/internal/models"
	"github.com/chingu-finance/scheduler/internal/repository"
	"github.com/chingu-finance/scheduler/internal/schedule"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Settler processes an approval event.
type Settler interface {
	SettleRecurring(ctx context.Context, ev models.ApprovalEvent, now time.Time) error
}

const (
	// limiterIdleTTL must exceed a bucket's full refill time (one minute)
	// so an evicted user returns with no more budget than a surviving
	// bucket would have given them.
	limiterIdleTTL        = 5 * time.Minute
	limiterSweepThreshold = 1024
)

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Handler receives approval events from the trigger source.
type Handler struct {
	svc Settler
	cfg *config.Config
	log *logrus.Logger

	mu       sync.Mutex
	limiters map[string]*userLimiter
}

// NewHandler initializes a new handler
func NewHandler(svc Settler, cfg *config.Config, log *logrus.Logger) *Handler {
	return &Handler{
		svc:      svc,
		cfg:      cfg,
		log:      log,
		limiters: make(map[string]*userLimiter),
	}
}

// ApproveRecurring handles a settlement approval event. The request must
// carry a bearer token signed with the shared event secret; the body is
// the approval payload. Every non-2xx response surfaces the event as
// failed so the trigger source's retry policy applies; the codes
// classify the failure: 429 defers under the per-user cap, 404 marks a
// missing reference, 422 a data-integrity problem, 500 a transient
// fault, and 409 tells a replayed event its instance is already settled.
func (h *Handler) ApproveRecurring(w http.ResponseWriter, r *http.Request) {
	if err := h.verifyEventToken(r); err != nil {
		h.log.Warnf("Rejected approval event: %v", err)
		writeJSONError(w, http.StatusUnauthorized, "invalid event token")
		return
	}

	var ev models.ApprovalEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed payload")
		return
	}
	if err := validateEvent(ev); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.allow(ev.UserID) {
		h.log.Warnf("Settlement rate limit exceeded for user %s", ev.UserID)
		writeJSONError(w, http.StatusTooManyRequests, "settlement rate limit exceeded")
		return
	}

	err := h.svc.SettleRecurring(r.Context(), ev, time.Now())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "settled"})
	case errors.Is(err, repository.ErrTransactionNotFound),
		errors.Is(err, repository.ErrTemplateNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrAlreadySettled):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, schedule.ErrInvalidInterval):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Errorf("Settlement failed for transaction %s: %v", ev.TransactionID, err)
		writeJSONError(w, http.StatusInternalServerError, "settlement failed")
	}
}

// Healthz reports process liveness
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) verifyEventToken(r *http.Request) error {
	auth := r.Header.Get("Authorization")
	tokenString, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || tokenString == "" {
		return fmt.Errorf("missing bearer token")
	}

	_, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(h.cfg.EventSecret), nil
	})
	if err != nil {
		return fmt.Errorf("failed to verify event token: %w", err)
	}
	return nil
}

func validateEvent(ev models.ApprovalEvent) error {
	if _, err := uuid.Parse(ev.TransactionID); err != nil {
		return fmt.Errorf("transactionId must be a UUID")
	}
	if _, err := uuid.Parse(ev.RecurringTemplateID); err != nil {
		return fmt.Errorf("recurringTemplateId must be a UUID")
	}
	if _, err := uuid.Parse(ev.UserID); err != nil {
		return fmt.Errorf("userId must be a UUID")
	}
	if !ev.RecurringInterval.Valid() {
		return fmt.Errorf("recurringInterval must be one of DAILY, WEEKLY, MONTHLY, YEARLY")
	}
	return nil
}

// allow consults the per-user token bucket: SettleRatePerMinute events per
// minute with an equal burst, so one user's approval spree cannot starve
// the rest.
func (h *Handler) allow(userID string) bool {
	now := time.Now()

	h.mu.Lock()
	entry, ok := h.limiters[userID]
	if !ok {
		if len(h.limiters) >= limiterSweepThreshold {
			h.evictIdleLocked(now)
		}
		perMinute := h.cfg.SettleRatePerMinute
		entry = &userLimiter{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		}
		h.limiters[userID] = entry
	}
	entry.lastSeen = now
	h.mu.Unlock()

	return entry.limiter.Allow()
}

// evictIdleLocked drops buckets idle past limiterIdleTTL. Caller holds mu.
func (h *Handler) evictIdleLocked(now time.Time) {
	for id, entry := range h.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(h.limiters, id)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
