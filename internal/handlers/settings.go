package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/models"
	"humanityclub/site/internal/respond"
)

type donationRequest struct {
	UPIID         string `json:"upiId"`
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	IFSCCode      string `json:"ifscCode"`
	BankName      string `json:"bankName"`
}

type founderRequest struct {
	Message string `json:"message"`
	Name    string `json:"name"`
	Title   string `json:"title"`
}

func (h HandlerSet) GetDonation(c *gin.Context) {
	details, err := h.deps.Settings.Donation(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, toDonation(details))
}

func (h HandlerSet) UpdateDonation(c *gin.Context) {
	var req donationRequest
	if err := bindJSON(c, &req, nil); err != nil {
		respond.Error(c, err)
		return
	}

	details, err := h.deps.Settings.UpdateDonation(c.Request.Context(), models.DonationDetails{
		UPIID:         req.UPIID,
		AccountName:   req.AccountName,
		AccountNumber: req.AccountNumber,
		IFSCCode:      req.IFSCCode,
		BankName:      req.BankName,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "Donation details updated successfully", toDonation(details))
}

func (h HandlerSet) ReplaceQR(c *gin.Context) {
	upload, closeFile, err := formImage(c)
	if err != nil {
		respond.Error(c, apperr.Wrap(err, apperr.KindValidation, "Could not read uploaded file"))
		return
	}
	defer closeFile()

	details, err := h.deps.Settings.ReplaceQR(c.Request.Context(), upload)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "QR code uploaded successfully", toDonation(details))
}

func (h HandlerSet) RemoveQR(c *gin.Context) {
	details, err := h.deps.Settings.RemoveQR(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "QR code deleted successfully", toDonation(details))
}

func (h HandlerSet) GetFounder(c *gin.Context) {
	founder, err := h.deps.Settings.Founder(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, toFounder(founder))
}

func (h HandlerSet) UpdateFounder(c *gin.Context) {
	var req founderRequest
	if err := bindJSON(c, &req, nil); err != nil {
		respond.Error(c, err)
		return
	}

	founder, err := h.deps.Settings.UpdateFounder(c.Request.Context(), req.Message, req.Name, req.Title)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "Founder message updated successfully", toFounder(founder))
}

func (h HandlerSet) ReplaceFounderImage(c *gin.Context) {
	upload, closeFile, err := formImage(c)
	if err != nil {
		respond.Error(c, apperr.Wrap(err, apperr.KindValidation, "Could not read uploaded file"))
		return
	}
	defer closeFile()

	founder, err := h.deps.Settings.ReplaceFounderImage(c.Request.Context(), upload)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "Founder image updated successfully", toFounder(founder))
}
