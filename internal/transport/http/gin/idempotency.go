package httpgin

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	redisrepo "github.com/kirinyoku/gigbook/internal/repository/redis"
)

const idemLockTTL = 60 * time.Second

// createOnce runs create at most once per Idempotency-Key and acting
// profile. A repeated key replays the stored 201 body; a key whose first
// request is still running gets 409 with Retry-After. Without a key or a
// store create simply runs.
func createOnce(
	c *gin.Context,
	idem *redisrepo.IdempotencyStore,
	scope string,
	profileID int64,
	create func() (any, error),
) {
	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if idem == nil || idemKey == "" {
		v, err := create()
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, v)
		return
	}

	ctx := c.Request.Context()
	storageKey := idem.Key(scope, profileID, idemKey)

	replay := func() bool {
		payload, ok, _ := idem.GetResult(ctx, storageKey)
		if !ok {
			return false
		}
		c.Header("Idempotency-Key", idemKey)
		c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
		return true
	}

	if replay() {
		return
	}

	locked, err := idem.AcquireLock(ctx, storageKey, idemLockTTL)
	if err != nil {
		respondErr(c, err)
		return
	}
	if !locked {
		if replay() {
			return
		}
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
		return
	}

	v, err := create()
	if err != nil {
		_ = idem.Release(ctx, storageKey)
		respondErr(c, err)
		return
	}

	b, err := json.Marshal(v)
	if err != nil {
		_ = idem.Release(ctx, storageKey)
		respondErr(c, err)
		return
	}
	_ = idem.SaveResult(ctx, storageKey, string(b))

	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", b)
}
