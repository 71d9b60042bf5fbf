package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"humanityclub/site/internal/models"
)

var ErrSettingsMissing = errors.New("settings row missing")

// SettingsRepository owns the two singleton rows: donation details and the
// founder message. Both are seeded by migration.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

const donationColumns = `upi_id, qr_code_image, qr_object_key, account_name, account_number, ifsc_code, bank_name, updated_at`

func (r *SettingsRepository) Donation(ctx context.Context) (models.DonationDetails, error) {
	return scanDonation(r.pool.QueryRow(ctx, `SELECT `+donationColumns+` FROM donation_details`))
}

// UpdateDonation applies a partial update; empty strings keep the stored
// value.
func (r *SettingsRepository) UpdateDonation(ctx context.Context, d models.DonationDetails) (models.DonationDetails, error) {
	query := `
		UPDATE donation_details SET
			upi_id         = COALESCE(NULLIF($1, ''), upi_id),
			account_name   = COALESCE(NULLIF($2, ''), account_name),
			account_number = COALESCE(NULLIF($3, ''), account_number),
			ifsc_code      = COALESCE(NULLIF($4, ''), ifsc_code),
			bank_name      = COALESCE(NULLIF($5, ''), bank_name),
			updated_at     = NOW()
		RETURNING ` + donationColumns

	return scanDonation(r.pool.QueryRow(ctx, query, d.UPIID, d.AccountName, d.AccountNumber, d.IFSCCode, d.BankName))
}

// SetDonationQR stores a new QR image (nil clears it) and returns the
// previous object key, if any.
func (r *SettingsRepository) SetDonationQR(ctx context.Context, url *string, key *string) (models.DonationDetails, *string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.DonationDetails{}, nil, err
	}
	defer tx.Rollback(ctx)

	var previous *string
	if err := tx.QueryRow(ctx, `SELECT qr_object_key FROM donation_details FOR UPDATE`).Scan(&previous); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DonationDetails{}, nil, ErrSettingsMissing
		}
		return models.DonationDetails{}, nil, err
	}

	details, err := scanDonation(tx.QueryRow(ctx, `
		UPDATE donation_details
		SET qr_code_image = $1, qr_object_key = $2, updated_at = NOW()
		RETURNING `+donationColumns, url, key))
	if err != nil {
		return models.DonationDetails{}, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.DonationDetails{}, nil, err
	}
	return details, previous, nil
}

const founderColumns = `image, image_key, message, name, title, updated_at`

func (r *SettingsRepository) Founder(ctx context.Context) (models.FounderMessage, error) {
	return scanFounder(r.pool.QueryRow(ctx, `SELECT `+founderColumns+` FROM founder_message`))
}

func (r *SettingsRepository) UpdateFounderText(ctx context.Context, message, name, title string) (models.FounderMessage, error) {
	query := `
		UPDATE founder_message
		SET message = $1, name = $2, title = $3, updated_at = NOW()
		RETURNING ` + founderColumns
	return scanFounder(r.pool.QueryRow(ctx, query, message, name, title))
}

func (r *SettingsRepository) SetFounderImage(ctx context.Context, url string, key *string) (models.FounderMessage, *string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.FounderMessage{}, nil, err
	}
	defer tx.Rollback(ctx)

	var previous *string
	if err := tx.QueryRow(ctx, `SELECT image_key FROM founder_message FOR UPDATE`).Scan(&previous); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.FounderMessage{}, nil, ErrSettingsMissing
		}
		return models.FounderMessage{}, nil, err
	}

	founder, err := scanFounder(tx.QueryRow(ctx, `
		UPDATE founder_message
		SET image = $1, image_key = $2, updated_at = NOW()
		RETURNING `+founderColumns, url, key))
	if err != nil {
		return models.FounderMessage{}, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.FounderMessage{}, nil, err
	}
	return founder, previous, nil
}

// ReferencedObjectKeys lists every object key any row still points at.
func (r *SettingsRepository) ReferencedObjectKeys(ctx context.Context) (map[string]struct{}, error) {
	const query = `
		SELECT image_key FROM projects WHERE image_key IS NOT NULL
		UNION SELECT object_key FROM gallery_images
		UNION SELECT qr_object_key FROM donation_details WHERE qr_object_key IS NOT NULL
		UNION SELECT image_key FROM founder_message WHERE image_key IS NOT NULL
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys[key] = struct{}{}
	}
	return keys, rows.Err()
}

func scanDonation(row pgx.Row) (models.DonationDetails, error) {
	var d models.DonationDetails
	if err := row.Scan(
		&d.UPIID,
		&d.QRCodeImage,
		&d.QRObjectKey,
		&d.AccountName,
		&d.AccountNumber,
		&d.IFSCCode,
		&d.BankName,
		&d.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DonationDetails{}, ErrSettingsMissing
		}
		return models.DonationDetails{}, err
	}
	return d, nil
}

func scanFounder(row pgx.Row) (models.FounderMessage, error) {
	var f models.FounderMessage
	if err := row.Scan(
		&f.Image,
		&f.ImageKey,
		&f.Message,
		&f.Name,
		&f.Title,
		&f.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.FounderMessage{}, ErrSettingsMissing
		}
		return models.FounderMessage{}, err
	}
	return f, nil
}
