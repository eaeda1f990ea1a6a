package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	contentdomain "github.com/inkwell-ai/inkwell/internal/content/domain"
)

type GenerateRequest struct {
	ContentType       string `json:"contentType"`
	Topic             string `json:"topic"`
	Tone              string `json:"tone"`
	Length            string `json:"length"`
	AdditionalContext string `json:"additionalContext"`
}

type GenerateResponse struct {
	Content          string       `json:"content"`
	Cost             int64        `json:"cost"`
	RemainingCredits int64        `json:"remainingCredits"`
	ArtifactID       snowflake.ID `json:"artifactId"`
	DebitPending     bool         `json:"debitPending,omitempty"`
}

func (s *Server) Generate(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if s.limiter.Enabled() {
		res, err := s.limiter.Allow(c.Request.Context(), accountID)
		if err == nil && !res.Allowed {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			}
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		// A broken limiter never blocks generation.
	}

	result, err := s.contentsvc.Generate(c.Request.Context(), contentdomain.GenerateRequest{
		OwnerID:           accountID,
		ContentType:       strings.TrimSpace(req.ContentType),
		Topic:             strings.TrimSpace(req.Topic),
		Tone:              strings.TrimSpace(req.Tone),
		Length:            strings.TrimSpace(req.Length),
		AdditionalContext: req.AdditionalContext,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{
		Content:          result.Artifact.Body,
		Cost:             result.Cost,
		RemainingCredits: result.RemainingCredits,
		ArtifactID:       result.Artifact.ID,
		DebitPending:     result.DebitPending,
	})
}

func (s *Server) History(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	artifacts, err := s.contentsvc.History(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"content": artifacts,
		"count":   len(artifacts),
	})
}

func (s *Server) DeleteArtifact(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	artifactID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, contentdomain.ErrArtifactNotFound)
		return
	}

	if err := s.contentsvc.Delete(c.Request.Context(), accountID, artifactID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
