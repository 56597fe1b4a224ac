package httpkit

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ActorID returns the user id stored by AuthRequired. It is nil on routes
// mounted without authentication, such as the public inquiry form.
func ActorID(c *gin.Context) *uuid.UUID {
	raw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return nil
	}
	id, ok := raw.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return nil
	}
	return &id
}
