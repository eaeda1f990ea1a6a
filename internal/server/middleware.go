package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/inkwell-ai/inkwell/internal/observability/context"
)

const contextAccountIDKey = "account_id"

// AuthRequired resolves the session cookie to an account and stashes the
// account id for handlers. Anything short of a live, verified session is a
// plain unauthorized.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		session, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextAccountIDKey, session.AccountID)
		ctx := obscontext.WithAccountID(c.Request.Context(), session.AccountID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func accountIDFromContext(c *gin.Context) (snowflake.ID, bool) {
	v, ok := c.Get(contextAccountIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(snowflake.ID)
	return id, ok
}
