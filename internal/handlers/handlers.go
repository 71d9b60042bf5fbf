package handlers

import (
	"context"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"humanityclub/site/internal/config"
	"humanityclub/site/internal/media/sniffer"
	"humanityclub/site/internal/middleware"
	"humanityclub/site/internal/models"
	"humanityclub/site/internal/service"
)

type AuthAPI interface {
	Login(ctx context.Context, email, password string) (service.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (service.AuthResult, error)
	Logout(ctx context.Context, userID string) error
}

type ProjectAPI interface {
	List(ctx context.Context) ([]models.Project, error)
	Create(ctx context.Context, input service.ProjectInput) (models.Project, error)
	Update(ctx context.Context, id string, input service.ProjectInput) (models.Project, error)
	ReplaceImage(ctx context.Context, id string, upload service.UploadInput) (models.Project, error)
	Delete(ctx context.Context, id string) error
}

type GalleryAPI interface {
	Albums(ctx context.Context) ([]models.GalleryAlbum, error)
	Images(ctx context.Context, page, perPage int) (service.ImagePage, error)
	Upload(ctx context.Context, ref service.AlbumRef, upload service.UploadInput) (models.GalleryImage, error)
	DeleteImage(ctx context.Context, id string) error
}

type SettingsAPI interface {
	Donation(ctx context.Context) (models.DonationDetails, error)
	UpdateDonation(ctx context.Context, input models.DonationDetails) (models.DonationDetails, error)
	ReplaceQR(ctx context.Context, upload service.UploadInput) (models.DonationDetails, error)
	RemoveQR(ctx context.Context) (models.DonationDetails, error)
	Founder(ctx context.Context) (models.FounderMessage, error)
	UpdateFounder(ctx context.Context, message, name, title string) (models.FounderMessage, error)
	ReplaceFounderImage(ctx context.Context, upload service.UploadInput) (models.FounderMessage, error)
}

type ContactAPI interface {
	Submit(ctx context.Context, name, email, message string) error
}

// HealthCheck reports whether one dependency answers.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Auth     AuthAPI
	Projects ProjectAPI
	Gallery  GalleryAPI
	Settings SettingsAPI
	Contact  ContactAPI

	Tokens middleware.AccessVerifier
	Users  middleware.UserLookup
	// Limiter is optional; without it no route is rate limited.
	Limiter middleware.Limiter
	Checks  map[string]HealthCheck
}

type HandlerSet struct {
	log  zerolog.Logger
	cfg  *config.AppConfig
	deps Deps
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Deps) HandlerSet {
	registerValidators()
	return HandlerSet{
		log:  log,
		cfg:  cfg,
		deps: deps,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	auth := middleware.Auth(h.deps.Tokens, h.deps.Users)
	admin := []gin.HandlerFunc{auth, middleware.IsAdmin()}

	v1 := router.Group("/v1")
	v1.GET("/health", h.Ping)

	{
		sessions := v1.Group("/admin")
		sessions.POST("/login", append(h.rateLimit("login", h.cfg.Security.LoginRateLimit, h.cfg.Security.LoginRateWindow,
			"Too many login attempts, please try again later."), h.Login)...)
		sessions.POST("/refresh-token", h.Refresh)
		sessions.POST("/logout", auth, h.Logout)
		sessions.GET("/me", auth, h.Me)
	}

	projects := v1.Group("/projects")
	projects.GET("", h.ListProjects)
	projects.POST("", append(admin, h.CreateProject)...)
	projects.PUT("/:projectId", append(admin, h.UpdateProject)...)
	projects.POST("/:projectId/image", append(admin, h.ReplaceProjectImage)...)
	projects.DELETE("/:projectId", append(admin, h.DeleteProject)...)

	gallery := v1.Group("/gallery")
	gallery.GET("/projects", h.ListAlbums)
	gallery.GET("/images", append(admin, h.ListImages)...)
	gallery.POST("/upload", append(admin, h.UploadImage)...)
	gallery.DELETE("/images/:imageId", append(admin, h.DeleteImage)...)

	donation := v1.Group("/donation-details")
	donation.GET("", h.GetDonation)
	donation.PUT("", append(admin, h.UpdateDonation)...)
	donation.POST("/qr", append(admin, h.ReplaceQR)...)
	donation.DELETE("/qr", append(admin, h.RemoveQR)...)

	founder := v1.Group("/founder-message")
	founder.GET("", h.GetFounder)
	founder.PUT("", append(admin, h.UpdateFounder)...)
	founder.POST("/image", append(admin, h.ReplaceFounderImage)...)

	v1.POST("/contact/send", append(h.rateLimit("contact", h.cfg.Security.ContactRateLimit, h.cfg.Security.ContactRateWindow,
		"Too many messages sent, please try again later."), h.SendContact)...)
}

func (h HandlerSet) rateLimit(scope string, limit int, window time.Duration, message string) []gin.HandlerFunc {
	if h.deps.Limiter == nil || limit <= 0 {
		return nil
	}
	return []gin.HandlerFunc{middleware.RateLimit(h.deps.Limiter, scope, limit, window, message, h.log)}
}

// formImage opens the multipart "image" field. A missing field yields a nil
// reader so the service reports it in its own words.
func formImage(c *gin.Context) (service.UploadInput, func(), error) {
	header, err := c.FormFile("image")
	if err != nil {
		return service.UploadInput{}, func() {}, nil
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (service.UploadInput, func(), error) {
	file, err := header.Open()
	if err != nil {
		return service.UploadInput{}, func() {}, err
	}
	return service.UploadInput{
		File:     file,
		Declared: sniffer.MimeTypeFromHTTP(http.Header(header.Header)),
	}, func() { _ = file.Close() }, nil
}
