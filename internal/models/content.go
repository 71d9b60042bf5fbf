package models

import "time"

const (
	DefaultProjectImage = "https://placehold.co/400x300"
	DefaultQRCodeImage  = "https://placehold.co/200x200"
)

type Project struct {
	ID          string
	Title       string
	Description string
	ImageURL    string
	// ImageKey is the object key in the asset bucket, nil for external or
	// placeholder images.
	ImageKey  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type GalleryAlbum struct {
	ID          string
	Title       string
	Description string
	Position    int
	Images      []GalleryImage
	CreatedAt   time.Time
}

type GalleryImage struct {
	ID        string
	AlbumID   string
	URL       string
	ObjectKey string
	Format    string
	SizeBytes int64
	CreatedAt time.Time
}

type DonationDetails struct {
	UPIID         string
	QRCodeImage   *string
	QRObjectKey   *string
	AccountName   string
	AccountNumber string
	IFSCCode      string
	BankName      string
	UpdatedAt     time.Time
}

type FounderMessage struct {
	Image     string
	ImageKey  *string
	Message   string
	Name      string
	Title     string
	UpdatedAt time.Time
}

type ContactMessage struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"receivedAt"`
}
