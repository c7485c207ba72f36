package handlers

import (
	"net/http"
	"strconv"
	"time"

	"relief-ledger/internal/models"

	"github.com/gin-gonic/gin"
)

type bucketResponse struct {
	ResourceType string    `json:"resource_type"`
	DisasterID   *uint     `json:"disaster_id"`
	Quantity     int64     `json:"quantity"`
	DisplayName  string    `json:"display_name"`
	Unit         string    `json:"unit"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toBucketResponse(b *models.StockBucket) bucketResponse {
	out := bucketResponse{
		ResourceType: b.ResourceType,
		Quantity:     b.Quantity,
		DisplayName:  b.DisplayName,
		Unit:         b.Unit,
		UpdatedAt:    b.UpdatedAt,
	}
	if b.DisasterID != 0 {
		id := b.DisasterID
		out.DisasterID = &id
	}
	return out
}

// ====== STOCK ======

func (a *App) ListStock(c *gin.Context) {
	buckets, err := a.Engine.Buckets(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	out := make([]bucketResponse, 0, len(buckets))
	for i := range buckets {
		out = append(out, toBucketResponse(&buckets[i]))
	}
	c.JSON(http.StatusOK, out)
}

// GetStock serves /stock/:resource_type?disaster_id=N. A missing
// disaster_id selects the bucket not tied to any disaster.
func (a *App) GetStock(c *gin.Context) {
	key := models.BucketKey{ResourceType: c.Param("resource_type")}
	if v := c.Query("disaster_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			a.badRequest(c, "disaster_id must be a non-negative integer")
			return
		}
		key.DisasterID = uint(id)
	}

	b, err := a.Engine.Bucket(c.Request.Context(), key)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBucketResponse(b))
}
