package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/cache"
	"humanityclub/site/internal/media/sniffer"
	"humanityclub/site/internal/models"
	"humanityclub/site/internal/storage"
)

type SettingsStore interface {
	Donation(ctx context.Context) (models.DonationDetails, error)
	UpdateDonation(ctx context.Context, d models.DonationDetails) (models.DonationDetails, error)
	SetDonationQR(ctx context.Context, url *string, key *string) (models.DonationDetails, *string, error)
	Founder(ctx context.Context) (models.FounderMessage, error)
	UpdateFounderText(ctx context.Context, message, name, title string) (models.FounderMessage, error)
	SetFounderImage(ctx context.Context, url string, key *string) (models.FounderMessage, *string, error)
}

// SettingsService manages the donation details and founder message
// singletons.
type SettingsService struct {
	settings     SettingsStore
	assets       *AssetService
	cache        *cache.ContentCache
	maxQRBytes   int64
	maxFounderSz int64
	log          zerolog.Logger
}

func NewSettingsService(settings SettingsStore, assets *AssetService, contentCache *cache.ContentCache, maxQRBytes, maxFounderBytes int64, log zerolog.Logger) *SettingsService {
	return &SettingsService{
		settings:     settings,
		assets:       assets,
		cache:        contentCache,
		maxQRBytes:   maxQRBytes,
		maxFounderSz: maxFounderBytes,
		log:          log,
	}
}

func (s *SettingsService) Donation(ctx context.Context) (models.DonationDetails, error) {
	var cached models.DonationDetails
	if s.cache.Get(ctx, cache.KeyDonation, &cached) {
		return cached, nil
	}
	details, err := s.settings.Donation(ctx)
	if err != nil {
		return models.DonationDetails{}, apperr.Wrap(err, apperr.KindInternal, "Error fetching donation details")
	}
	s.cache.Set(ctx, cache.KeyDonation, details)
	return details, nil
}

// UpdateDonation keeps the stored value for every field left empty.
func (s *SettingsService) UpdateDonation(ctx context.Context, input models.DonationDetails) (models.DonationDetails, error) {
	input.UPIID = strings.TrimSpace(input.UPIID)
	input.AccountName = strings.TrimSpace(input.AccountName)
	input.AccountNumber = strings.TrimSpace(input.AccountNumber)
	input.IFSCCode = strings.ToUpper(strings.TrimSpace(input.IFSCCode))
	input.BankName = strings.TrimSpace(input.BankName)

	details, err := s.settings.UpdateDonation(ctx, input)
	if err != nil {
		return models.DonationDetails{}, apperr.Wrap(err, apperr.KindInternal, "Error updating donation details")
	}
	s.cache.Invalidate(ctx, cache.KeyDonation)
	return details, nil
}

func (s *SettingsService) ReplaceQR(ctx context.Context, upload UploadInput) (models.DonationDetails, error) {
	upload.Folder = storage.FolderQR
	upload.MaxBytes = s.maxQRBytes
	upload.Allowed = []sniffer.MediaType{sniffer.TypeJPEG, sniffer.TypePNG}

	asset, err := s.assets.Store(ctx, upload)
	if err != nil {
		return models.DonationDetails{}, err
	}

	details, previous, err := s.settings.SetDonationQR(ctx, &asset.URL, &asset.Key)
	if err != nil {
		s.assets.Discard(ctx, &asset.Key)
		return models.DonationDetails{}, apperr.Wrap(err, apperr.KindInternal, "Error uploading QR code")
	}
	s.assets.Discard(ctx, previous)
	s.cache.Invalidate(ctx, cache.KeyDonation)
	return details, nil
}

func (s *SettingsService) RemoveQR(ctx context.Context) (models.DonationDetails, error) {
	details, previous, err := s.settings.SetDonationQR(ctx, nil, nil)
	if err != nil {
		return models.DonationDetails{}, apperr.Wrap(err, apperr.KindInternal, "Error deleting QR code")
	}
	s.assets.Discard(ctx, previous)
	s.cache.Invalidate(ctx, cache.KeyDonation)
	return details, nil
}

func (s *SettingsService) Founder(ctx context.Context) (models.FounderMessage, error) {
	var cached models.FounderMessage
	if s.cache.Get(ctx, cache.KeyFounder, &cached) {
		return cached, nil
	}
	founder, err := s.settings.Founder(ctx)
	if err != nil {
		return models.FounderMessage{}, apperr.Wrap(err, apperr.KindInternal, "Error fetching founder message")
	}
	s.cache.Set(ctx, cache.KeyFounder, founder)
	return founder, nil
}

func (s *SettingsService) UpdateFounder(ctx context.Context, message, name, title string) (models.FounderMessage, error) {
	message, name, title = strings.TrimSpace(message), strings.TrimSpace(name), strings.TrimSpace(title)
	if message == "" || name == "" || title == "" {
		return models.FounderMessage{}, apperr.New(apperr.KindValidation, "Message, name and title are required")
	}
	founder, err := s.settings.UpdateFounderText(ctx, message, name, title)
	if err != nil {
		return models.FounderMessage{}, apperr.Wrap(err, apperr.KindInternal, "Error updating founder message")
	}
	s.cache.Invalidate(ctx, cache.KeyFounder)
	return founder, nil
}

func (s *SettingsService) ReplaceFounderImage(ctx context.Context, upload UploadInput) (models.FounderMessage, error) {
	upload.Folder = storage.FolderFounder
	upload.MaxBytes = s.maxFounderSz
	upload.Allowed = []sniffer.MediaType{sniffer.TypeJPEG, sniffer.TypePNG}

	asset, err := s.assets.Store(ctx, upload)
	if err != nil {
		return models.FounderMessage{}, err
	}

	founder, previous, err := s.settings.SetFounderImage(ctx, asset.URL, &asset.Key)
	if err != nil {
		s.assets.Discard(ctx, &asset.Key)
		return models.FounderMessage{}, apperr.Wrap(err, apperr.KindInternal, "Error updating founder image")
	}
	s.assets.Discard(ctx, previous)
	s.cache.Invalidate(ctx, cache.KeyFounder)
	return founder, nil
}
