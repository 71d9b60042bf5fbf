package handlers

import (
	"time"

	"humanityclub/site/internal/models"
	"humanityclub/site/internal/service"
)

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type sessionResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresAt    time.Time    `json:"expiresAt"`
	User         userResponse `json:"user"`
}

type projectResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type imageResponse struct {
	ID        string    `json:"id"`
	AlbumID   string    `json:"albumId"`
	URL       string    `json:"url"`
	Format    string    `json:"format,omitempty"`
	SizeBytes int64     `json:"sizeBytes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type albumResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Images      []imageResponse `json:"images"`
}

type imagePageResponse struct {
	Images  []imageResponse `json:"images"`
	Page    int             `json:"page"`
	PerPage int             `json:"perPage"`
	Total   int             `json:"total"`
}

type donationResponse struct {
	UPIID         string    `json:"upiId"`
	QRCodeImage   *string   `json:"qrCodeImage"`
	AccountName   string    `json:"accountName"`
	AccountNumber string    `json:"accountNumber"`
	IFSCCode      string    `json:"ifscCode"`
	BankName      string    `json:"bankName"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type founderResponse struct {
	Image     string    `json:"image"`
	Message   string    `json:"message"`
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUser(u models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Role: string(u.Role)}
}

func toSession(r service.AuthResult) sessionResponse {
	return sessionResponse{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    r.AccessExpiresAt,
		User:         toUser(r.User),
	}
}

func toProject(p models.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Image:       p.ImageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toImage(img models.GalleryImage) imageResponse {
	return imageResponse{
		ID:        img.ID,
		AlbumID:   img.AlbumID,
		URL:       img.URL,
		Format:    img.Format,
		SizeBytes: img.SizeBytes,
		CreatedAt: img.CreatedAt,
	}
}

func toImages(images []models.GalleryImage) []imageResponse {
	out := make([]imageResponse, 0, len(images))
	for _, img := range images {
		out = append(out, toImage(img))
	}
	return out
}

func toAlbum(a models.GalleryAlbum) albumResponse {
	return albumResponse{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Images:      toImages(a.Images),
	}
}

func toDonation(d models.DonationDetails) donationResponse {
	return donationResponse{
		UPIID:         d.UPIID,
		QRCodeImage:   d.QRCodeImage,
		AccountName:   d.AccountName,
		AccountNumber: d.AccountNumber,
		IFSCCode:      d.IFSCCode,
		BankName:      d.BankName,
		UpdatedAt:     d.UpdatedAt,
	}
}

func toFounder(f models.FounderMessage) founderResponse {
	return founderResponse{
		Image:     f.Image,
		Message:   f.Message,
		Name:      f.Name,
		Title:     f.Title,
		UpdatedAt: f.UpdatedAt,
	}
}
