package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"humanityclub/site/internal/client/session"
)

type authPayload struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresAt    time.Time    `json:"expiresAt"`
	User         session.User `json:"user"`
}

type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Image struct {
	ID        string    `json:"id"`
	AlbumID   string    `json:"albumId"`
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

type Album struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Images      []Image `json:"images"`
}

type ImagePage struct {
	Images  []Image `json:"images"`
	Page    int     `json:"page"`
	PerPage int     `json:"perPage"`
	Total   int     `json:"total"`
}

type Donation struct {
	UPIID         string  `json:"upiId"`
	QRCodeImage   *string `json:"qrCodeImage"`
	AccountName   string  `json:"accountName"`
	AccountNumber string  `json:"accountNumber"`
	IFSCCode      string  `json:"ifscCode"`
	BankName      string  `json:"bankName"`
}

type Founder struct {
	Image   string `json:"image"`
	Message string `json:"message"`
	Name    string `json:"name"`
	Title   string `json:"title"`
}

// Login authenticates and hands the new session to the store.
func (c *Client) Login(ctx context.Context, email, password string) (session.User, error) {
	var pair authPayload
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/admin/login",
		json:   map[string]string{"email": email, "password": password},
		public: true,
	}, &pair)
	if err != nil {
		return session.User{}, err
	}
	if err := c.session.Login(pair.User, pair.AccessToken, pair.RefreshToken); err != nil {
		return session.User{}, err
	}
	return pair.User, nil
}

func (c *Client) Logout(ctx context.Context) {
	c.session.Logout(ctx, session.MsgLoggedOut)
}

// Revoke tells the server to drop the session behind accessToken. It
// bypasses the refresh path so a logout never triggers a refresh.
func (c *Client) Revoke(ctx context.Context, accessToken string) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/admin/logout", bearer: accessToken}, nil)
}

func (c *Client) Me(ctx context.Context) (session.User, error) {
	var out struct {
		User session.User `json:"user"`
	}
	err := c.do(ctx, call{method: http.MethodGet, path: "/admin/me"}, &out)
	return out.User, err
}

func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var out []Project
	err := c.do(ctx, call{method: http.MethodGet, path: "/projects"}, &out)
	return out, err
}

func (c *Client) CreateProject(ctx context.Context, title, description, image string) (Project, error) {
	var out Project
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/projects",
		json:   map[string]string{"title": title, "description": description, "image": image},
	}, &out)
	return out, err
}

func (c *Client) UpdateProject(ctx context.Context, id, title, description string) (Project, error) {
	var out Project
	err := c.do(ctx, call{
		method: http.MethodPut,
		path:   "/projects/" + url.PathEscape(id),
		json:   map[string]string{"title": title, "description": description},
	}, &out)
	return out, err
}

func (c *Client) ReplaceProjectImage(ctx context.Context, id string, file File) (Project, error) {
	var out Project
	err := c.do(ctx, call{method: http.MethodPost, path: "/projects/" + url.PathEscape(id) + "/image", file: &file}, &out)
	return out, err
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: "/projects/" + url.PathEscape(id)}, nil)
}

func (c *Client) Albums(ctx context.Context) ([]Album, error) {
	var out []Album
	err := c.do(ctx, call{method: http.MethodGet, path: "/gallery/projects"}, &out)
	return out, err
}

func (c *Client) GalleryImages(ctx context.Context, page, perPage int) (ImagePage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("perPage", strconv.Itoa(perPage))

	var out ImagePage
	err := c.do(ctx, call{method: http.MethodGet, path: "/gallery/images?" + q.Encode()}, &out)
	return out, err
}

func (c *Client) UploadGalleryImage(ctx context.Context, albumID string, file File) (Image, error) {
	var out Image
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/gallery/upload",
		fields: map[string]string{"albumId": albumID},
		file:   &file,
	}, &out)
	return out, err
}

func (c *Client) DeleteGalleryImage(ctx context.Context, id string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: "/gallery/images/" + url.PathEscape(id)}, nil)
}

func (c *Client) Donation(ctx context.Context) (Donation, error) {
	var out Donation
	err := c.do(ctx, call{method: http.MethodGet, path: "/donation-details"}, &out)
	return out, err
}

// UpdateDonation sends only the non-empty fields of d; the server keeps the
// rest.
func (c *Client) UpdateDonation(ctx context.Context, d Donation) (Donation, error) {
	var out Donation
	err := c.do(ctx, call{method: http.MethodPut, path: "/donation-details", json: d}, &out)
	return out, err
}

func (c *Client) UploadQR(ctx context.Context, file File) (Donation, error) {
	var out Donation
	err := c.do(ctx, call{method: http.MethodPost, path: "/donation-details/qr", file: &file}, &out)
	return out, err
}

func (c *Client) RemoveQR(ctx context.Context) (Donation, error) {
	var out Donation
	err := c.do(ctx, call{method: http.MethodDelete, path: "/donation-details/qr"}, &out)
	return out, err
}

func (c *Client) Founder(ctx context.Context) (Founder, error) {
	var out Founder
	err := c.do(ctx, call{method: http.MethodGet, path: "/founder-message"}, &out)
	return out, err
}

func (c *Client) UpdateFounder(ctx context.Context, message, name, title string) (Founder, error) {
	var out Founder
	err := c.do(ctx, call{
		method: http.MethodPut,
		path:   "/founder-message",
		json:   map[string]string{"message": message, "name": name, "title": title},
	}, &out)
	return out, err
}

func (c *Client) UploadFounderImage(ctx context.Context, file File) (Founder, error) {
	var out Founder
	err := c.do(ctx, call{method: http.MethodPost, path: "/founder-message/image", file: &file}, &out)
	return out, err
}

func (c *Client) SendContact(ctx context.Context, name, email, message string) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/contact/send",
		json:   map[string]string{"name": name, "email": email, "message": message},
		public: true,
	}, nil)
}
