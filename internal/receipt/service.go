package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-check/internal/validation"
)

// Validator checks one artifact against a reference date
type Validator interface {
	ValidateArtifact(ctx context.Context, artifact validation.Artifact, ref validation.Date) validation.Outcome
	AcceptedAmounts() *validation.AmountSet
}

// IDGenerator generates unique IDs for validation records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service validates receipts and keeps a history of the results
type Service struct {
	validator   Validator
	db          DB
	storage     Storage
	fetcher     Fetcher
	location    *time.Location
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source.
// Reference dates are taken in location.
func NewService(validator Validator, db DB, storage Storage, fetcher Fetcher, location *time.Location) *Service {
	return NewServiceWithDeps(validator, db, storage, fetcher, location, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(validator Validator, db DB, storage Storage, fetcher Fetcher, location *time.Location, idGen IDGenerator, timeSrc TimeSource) *Service {
	if location == nil {
		location = time.Local
	}
	return &Service{
		validator:   validator,
		db:          db,
		storage:     storage,
		fetcher:     fetcher,
		location:    location,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if unsafeFilenameChars.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// AcceptedAmounts returns the configured amount restriction, nil if none
func (s *Service) AcceptedAmounts() *validation.AmountSet {
	return s.validator.AcceptedAmounts()
}

// ReferenceDate returns today's date in the service's location
func (s *Service) ReferenceDate() validation.Date {
	return validation.DateOf(s.timeSource.Now().In(s.location))
}

// Validate checks an uploaded receipt against today's date and records the
// result. Archiving and history failures are logged and never change the
// verdict.
func (s *Service) Validate(ctx context.Context, upload Upload) *Validation {
	now := s.timeSource.Now()
	ref := validation.DateOf(now.In(s.location))

	outcome := s.validator.ValidateArtifact(ctx, validation.Artifact{
		Name: upload.Filename,
		Data: upload.Data,
	}, ref)

	source := upload.Source
	if source == "" {
		source = "upload"
	}

	record := &Validation{
		ID:            s.idGenerator.Generate(),
		Filename:      upload.Filename,
		ContentType:   upload.ContentType,
		Source:        source,
		Size:          len(upload.Data),
		Accepted:      outcome.Accepted,
		Amount:        outcome.Amount,
		Reason:        outcome.Reason,
		ReferenceDate: ref,
		CreatedAt:     now,
	}

	if err := s.record(record, upload.Data); err != nil {
		slog.Warn("Failed to record validation",
			"id", record.ID,
			"filename", upload.Filename,
			"error", err,
		)
	}

	return record
}

// ValidateURL downloads a receipt and validates it
func (s *Service) ValidateURL(ctx context.Context, rawURL string) (*Validation, error) {
	upload, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetching receipt: %w", err)
	}
	return s.Validate(ctx, *upload), nil
}

// record archives the upload and saves the validation to the history
func (s *Service) record(v *Validation, data []byte) error {
	if len(data) > 0 {
		savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", v.ID, sanitizeFilename(v.Filename)), data)
		if err != nil {
			return fmt.Errorf("archiving upload: %w", err)
		}
		v.ArchivePath = savedPath
	}

	if err := s.db.SaveValidation(v); err != nil {
		if v.ArchivePath != "" {
			if delErr := s.storage.Delete(v.ArchivePath); delErr != nil {
				slog.Warn("Failed to delete archived upload", "path", v.ArchivePath, "error", delErr)
			}
			v.ArchivePath = ""
		}
		return fmt.Errorf("saving validation to database: %w", err)
	}
	return nil
}

// GetValidation retrieves a validation record by ID
func (s *Service) GetValidation(id string) (*Validation, error) {
	v, err := s.db.GetValidation(id)
	if err != nil {
		return nil, fmt.Errorf("getting validation: %w", err)
	}
	return v, nil
}

// ListValidations returns the validation history, newest first
func (s *Service) ListValidations() ([]*Validation, error) {
	validations, err := s.db.ListValidations()
	if err != nil {
		return nil, fmt.Errorf("listing validations: %w", err)
	}
	return validations, nil
}

// ArchivedFile is an archived upload ready to be served back
type ArchivedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// GetValidationFile retrieves the archived upload of a validation. The content
// type comes from the file itself, never from what the uploader claimed.
func (s *Service) GetValidationFile(id string) (*ArchivedFile, error) {
	v, err := s.db.GetValidation(id)
	if err != nil {
		return nil, fmt.Errorf("getting validation: %w", err)
	}
	if v.ArchivePath == "" {
		return nil, fmt.Errorf("%w: no archived file for %s", ErrNotFound, id)
	}

	data, err := s.storage.Get(v.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("getting validation file: %w", err)
	}

	contentType := "application/octet-stream"
	if validation.Classify(v.Filename, validation.LeadingBytes(data)) == validation.KindDocument {
		contentType = "application/pdf"
	}
	return &ArchivedFile{
		Name:        sanitizeFilename(v.Filename),
		ContentType: contentType,
		Data:        data,
	}, nil
}
