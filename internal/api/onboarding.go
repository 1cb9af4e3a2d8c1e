package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"waba-onboarding/internal/config"
	"waba-onboarding/internal/database"
	"waba-onboarding/internal/onboarding"

	"github.com/gin-gonic/gin"
)

type OnboardingHandler struct {
	Session *onboarding.Session
	Poller  *onboarding.Poller
	Store   *database.Store
	Config  *config.Config
}

func NewOnboardingHandler(session *onboarding.Session, poller *onboarding.Poller, store *database.Store, cfg *config.Config) *OnboardingHandler {
	return &OnboardingHandler{
		Session: session,
		Poller:  poller,
		Store:   store,
		Config:  cfg,
	}
}

// GetSession returns the current onboarding snapshot.
func (h *OnboardingHandler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.Session.Snapshot())
}

// Start kicks off the Embedded Signup and begins status polling. The
// returned URL is opened by the UI according to the launch mode.
func (h *OnboardingHandler) Start(c *gin.Context) {
	url, err := h.Session.Start(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Polling outlives the HTTP request; it is cancelled by Stop, not by the
	// request context.
	h.Poller.Start(context.Background())
	c.JSON(http.StatusOK, gin.H{"url": url, "session": h.Session.Snapshot()})
}

// RegisterPhone submits the business phone number.
func (h *OnboardingHandler) RegisterPhone(c *gin.Context) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Session.RegisterPhone(c.Request.Context(), req.Phone); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": h.Session.Snapshot()})
}

// VerifyOTP submits the 6-digit code.
func (h *OnboardingHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		OTP string `json:"otp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Session.VerifyOTP(c.Request.Context(), req.OTP); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": h.Session.Snapshot()})
}

// ResendOTP requests a fresh verification code.
func (h *OnboardingHandler) ResendOTP(c *gin.Context) {
	if err := h.Session.ResendOTP(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": h.Session.Snapshot()})
}

// CreateSystemUser provisions the backend service credential.
func (h *OnboardingHandler) CreateSystemUser(c *gin.Context) {
	if err := h.Session.CreateSystemUser(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": h.Session.Snapshot()})
}

// Activate finalizes the WABA activation.
func (h *OnboardingHandler) Activate(c *gin.Context) {
	if err := h.Session.Activate(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": h.Session.Snapshot()})
}

// CheckStatus is the manual re-check offered after a poll timeout.
func (h *OnboardingHandler) CheckStatus(c *gin.Context) {
	if err := h.Session.CheckStatus(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": h.Session.Snapshot()})
}

// Restart resets the flow to the beginning after a failure.
func (h *OnboardingHandler) Restart(c *gin.Context) {
	h.Poller.Stop()
	h.Session.Restart()
	c.JSON(http.StatusOK, gin.H{"session": h.Session.Snapshot()})
}

// GetTransitions returns the recent audit trail.
func (h *OnboardingHandler) GetTransitions(c *gin.Context) {
	transitions, err := h.Store.RecentTransitions(100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, transitions)
}

// HandleCallback is Meta's redirect target. The query parameters are
// consumed exactly once and then stripped by redirecting to the clean status
// page path, so a refresh cannot resubmit the same code.
func (h *OnboardingHandler) HandleCallback(c *gin.Context) {
	params := onboarding.ParseCallback(c.Request.URL.Query())

	handled := h.Session.ResolveCallback(c.Request.Context(), params)
	if !handled {
		// Nothing signup-related in the query; refresh from the backend.
		if err := h.Session.CheckStatus(c.Request.Context()); err != nil {
			log.Printf("Status refresh after empty callback failed: %v", err)
		}
	}

	if h.Session.Step().IsTerminal() {
		h.Poller.Stop()
	}

	c.Redirect(http.StatusFound, h.Config.StatusPagePath)
}

func (h *OnboardingHandler) respondError(c *gin.Context, err error) {
	if errors.Is(err, onboarding.ErrBusy) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	var fe *onboarding.FlowError
	if errors.As(err, &fe) {
		status := http.StatusBadGateway
		if fe.Kind == onboarding.KindValidation {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": fe.Message, "kind": fe.Kind, "session": h.Session.Snapshot()})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
