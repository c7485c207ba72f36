package handlers

import (
	"net/http"
	"time"

	"relief-ledger/internal/ledger"
	"relief-ledger/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type donationResponse struct {
	ID           uint                `json:"id"`
	DonorName    string              `json:"donor_name"`
	ResourceType *string             `json:"resource_type"`
	Quantity     *int64              `json:"quantity"`
	Unit         *string             `json:"unit"`
	Amount       decimal.NullDecimal `json:"amount"`
	DisasterID   *uint               `json:"disaster_id"`
	DonatedBy    uint                `json:"donated_by"`
	DonatedAt    time.Time           `json:"donated_at"`
}

func toDonationResponse(d *models.Donation) donationResponse {
	return donationResponse{
		ID:           d.ID,
		DonorName:    d.DonorName,
		ResourceType: d.ResourceType,
		Quantity:     d.Quantity,
		Unit:         d.Unit,
		Amount:       d.Amount,
		DisasterID:   d.DisasterID,
		DonatedBy:    d.DonatedBy,
		DonatedAt:    d.DonatedAt,
	}
}

// ====== DONATIONS ======

func (a *App) ListDonations(c *gin.Context) {
	list, err := a.Engine.List(c.Request.Context(), principal(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	out := make([]donationResponse, 0, len(list))
	for i := range list {
		out = append(out, toDonationResponse(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (a *App) GetDonation(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		a.badRequest(c, "invalid donation id")
		return
	}
	d, err := a.Engine.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toDonationResponse(d))
}

func (a *App) CreateDonation(c *gin.Context) {
	fields, ok := a.bindFields(c)
	if !ok {
		return
	}
	d, err := a.Engine.Create(c.Request.Context(), principal(c), fields)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Donation created", "id": d.ID})
}

func (a *App) UpdateDonation(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		a.badRequest(c, "invalid donation id")
		return
	}
	fields, ok := a.bindFields(c)
	if !ok {
		return
	}
	d, err := a.Engine.Update(c.Request.Context(), principal(c), id, fields)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Donation updated", "donation": toDonationResponse(d)})
}

func (a *App) DeleteDonation(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		a.badRequest(c, "invalid donation id")
		return
	}
	if err := a.Engine.Delete(c.Request.Context(), principal(c), id); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Donation deleted"})
}

// maxDonationBody caps donation request bodies.
const maxDonationBody = 8 << 10

func (a *App) bindFields(c *gin.Context) (ledger.DonationFields, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxDonationBody)
	body, err := c.GetRawData()
	if err != nil {
		a.badRequest(c, "request body is unreadable or too large")
		return ledger.DonationFields{}, false
	}
	fields, err := ledger.ParseDonationFields(body)
	if err != nil {
		a.fail(c, err)
		return ledger.DonationFields{}, false
	}
	return fields, true
}
