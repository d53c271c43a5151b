package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatforge/gateway/internal/captcha"
)

type verifyCaptchaRequest struct {
	ChallengeID string `json:"challengeId" binding:"required"`
	Answer      string `json:"answer" binding:"required"`
}

func (h *Handler) GenerateCaptcha(c *gin.Context) {
	id, question := h.captcha.Generate()
	h.metrics.RecordCaptchaGenerated()

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"challengeId": id,
		"question":    question,
	})
}

func (h *Handler) VerifyCaptcha(c *gin.Context) {
	var req verifyCaptchaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	err := h.captcha.Verify(req.ChallengeID, req.Answer)
	if err == nil {
		h.metrics.RecordCaptchaVerified("success")
		c.JSON(http.StatusOK, gin.H{"success": true, "verified": true})
		return
	}

	var wrong *captcha.WrongAnswerError
	switch {
	case errors.As(err, &wrong):
		h.metrics.RecordCaptchaVerified("wrong_answer")
		c.JSON(http.StatusOK, gin.H{
			"success":           true,
			"verified":          false,
			"remainingAttempts": wrong.Remaining,
		})
	case errors.Is(err, captcha.ErrChallengeNotFound):
		h.metrics.RecordCaptchaVerified("not_found")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "challenge not found", "code": "CHALLENGE_NOT_FOUND"})
	case errors.Is(err, captcha.ErrChallengeExpired):
		h.metrics.RecordCaptchaVerified("expired")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "challenge expired", "code": "CHALLENGE_EXPIRED"})
	case errors.Is(err, captcha.ErrAttemptsExceeded):
		h.metrics.RecordCaptchaVerified("exhausted")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "max attempts exceeded", "code": "ATTEMPTS_EXCEEDED"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
	}
}
