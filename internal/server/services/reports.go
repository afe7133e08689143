package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/diagnexus/internal/common"
	"github.com/dmitrijs2005/diagnexus/internal/server/config"
	"github.com/dmitrijs2005/diagnexus/internal/server/idempotency"
	"github.com/dmitrijs2005/diagnexus/internal/server/models"
	"github.com/dmitrijs2005/diagnexus/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/diagnexus/internal/server/repositories/reports"
	"github.com/dmitrijs2005/diagnexus/internal/server/storage"
)

// PresignTTL is how long a presigned download link stays valid.
const PresignTTL = 15 * time.Minute

// ObjectStore is the object storage used for report bytes.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) (*storage.Object, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type UploadInput struct {
	// OwnerID is the patient the report belongs to; 0 means the actor.
	OwnerID     int64
	Name        string
	Comment     string
	FileName    string
	ContentType string
	Body        []byte
	// IdempotencyKey makes a retried upload return the first result.
	IdempotencyKey string
}

type UploadResult struct {
	Report *models.Report
	// Replayed is set when the idempotency key matched an earlier upload.
	Replayed bool
	Warnings []common.Warning
}

type DownloadResult struct {
	Report      *models.Report
	Body        []byte
	ContentType string
	FileName    string
	Warnings    []common.Warning
}

// ReportService stores report files and their metadata and enforces who may
// see them: patients their own reports, doctors and admins everyone's.
type ReportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       ObjectStore
	idem        idempotency.Store
	maxSize     int64
	now         func() time.Time
	nonce       func() (string, error)
}

// NewReportService wires the service. idem may be nil to disable
// idempotency keys.
func NewReportService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStore, idem idempotency.Store, cfg *config.Config) *ReportService {
	maxSize := cfg.MaxUploadSize
	if maxSize <= 0 || maxSize > common.MaxReportSize {
		maxSize = common.MaxReportSize
	}
	return &ReportService{
		db:          db,
		repomanager: m,
		store:       store,
		idem:        idem,
		maxSize:     maxSize,
		now:         time.Now,
		nonce:       keyNonce,
	}
}

func keyNonce() (string, error) {
	return common.MakeRandHexString(4)
}

// MaxSize is the largest accepted report in bytes.
func (s *ReportService) MaxSize() int64 {
	return s.maxSize
}

func (s *ReportService) validateUpload(in *UploadInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || len(in.Body) == 0 {
		return invalid("file and name are required")
	}
	in.ContentType = NormalizeContentType(in.ContentType)
	if _, ok := AllowedContentTypes[in.ContentType]; !ok {
		return invalid("invalid file type, only PDF and images are allowed")
	}
	if int64(len(in.Body)) > s.maxSize {
		return invalid(fmt.Sprintf("file size too large, maximum %d MB allowed", s.maxSize>>20))
	}
	return nil
}

// Upload validates the file, writes it to object storage and then records
// the row. Nothing is written to storage when validation or authorization
// fails. If the row cannot be saved, the stored object is removed
// best-effort and the error is ErrorServiceUnavailable. An idempotency key is
// reserved before the object is written, so a concurrent retry with the same
// key gets ErrorConflict instead of storing the file again.
func (s *ReportService) Upload(ctx context.Context, actor *models.Account, in UploadInput) (*UploadResult, error) {
	if actor == nil {
		return nil, common.ErrorUnauthorized
	}
	if err := s.validateUpload(&in); err != nil {
		return nil, err
	}

	owner := in.OwnerID
	if owner == 0 {
		owner = actor.ID
	}
	if owner != actor.ID {
		if !actor.Role.IsStaff() {
			return nil, common.ErrorForbidden
		}
		acc, err := s.repomanager.Accounts(s.db).GetByID(ctx, owner)
		if err != nil {
			return nil, classify("find owner", err)
		}
		if !acc.IsActive {
			return nil, fmt.Errorf("find owner: %w", common.ErrorNotFound)
		}
	}

	res := &UploadResult{}

	var idemKey string
	if in.IdempotencyKey != "" && s.idem != nil {
		key := idempotency.Key(actor.ID, in.IdempotencyKey)
		id, reserved, err := s.idem.Reserve(ctx, key)
		switch {
		case errors.Is(err, idempotency.ErrInProgress):
			return nil, fmt.Errorf("%w: upload with this idempotency key is in progress", common.ErrorConflict)
		case err != nil:
			res.Warnings = append(res.Warnings, common.Warning{Op: "idempotency reserve", Err: err})
		case reserved:
			idemKey = key
		default:
			report, err := s.repomanager.Reports(s.db).GetActive(ctx, id)
			if err == nil {
				res.Report = report
				res.Replayed = true
				return res, nil
			}
			if !errors.Is(err, common.ErrorNotFound) {
				return nil, classify("load report", err)
			}
			// The recorded report is gone; store again under the same key.
			idemKey = key
		}
	}

	now := s.now()
	fileName := in.FileName
	if fileName == "" {
		fileName = in.Name
	}
	nonce, err := s.nonce()
	if err != nil {
		s.release(ctx, idemKey, res)
		return res, fmt.Errorf("generate storage key: %w", err)
	}
	key := StorageKey(owner, fileName, in.ContentType, now, nonce)

	err = s.store.Put(ctx, key, in.Body, in.ContentType, map[string]string{
		"original-name": SanitizeFileName(fileName),
		"uploaded-by":   strconv.FormatInt(actor.ID, 10),
		"uploaded-at":   now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.release(ctx, idemKey, res)
		return res, classify("store object", err)
	}

	report, err := s.repomanager.Reports(s.db).Create(ctx, &models.Report{
		OwnerID:     owner,
		Name:        in.Name,
		StorageKey:  key,
		Size:        int64(len(in.Body)),
		ContentType: in.ContentType,
		Comment:     strings.TrimSpace(in.Comment),
		UpdatedBy:   actor.ID,
	})
	if err != nil {
		if derr := s.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			res.Warnings = append(res.Warnings, common.Warning{Op: "delete orphaned object " + key, Err: derr})
		}
		s.release(ctx, idemKey, res)
		return res, fmt.Errorf("%w: save report: %w", common.ErrorServiceUnavailable, err)
	}
	res.Report = report

	if idemKey != "" {
		if err := s.idem.Remember(ctx, idemKey, report.ID); err != nil {
			res.Warnings = append(res.Warnings, common.Warning{Op: "idempotency remember", Err: err})
		}
	}

	return res, nil
}

// release frees a reserved idempotency key so a retry can store the file.
func (s *ReportService) release(ctx context.Context, idemKey string, res *UploadResult) {
	if idemKey == "" {
		return
	}
	if err := s.idem.Release(context.WithoutCancel(ctx), idemKey); err != nil {
		res.Warnings = append(res.Warnings, common.Warning{Op: "idempotency release", Err: err})
	}
}

// loadAuthorized returns the active report if actor may read it.
func (s *ReportService) loadAuthorized(ctx context.Context, actor *models.Account, id int64) (*models.Report, error) {
	if actor == nil {
		return nil, common.ErrorUnauthorized
	}
	report, err := s.repomanager.Reports(s.db).GetActive(ctx, id)
	if err != nil {
		return nil, classify("load report", err)
	}
	if report.OwnerID != actor.ID && !actor.Role.IsStaff() {
		return nil, common.ErrorForbidden
	}
	return report, nil
}

// Download returns the report bytes. Logging the download is best-effort.
func (s *ReportService) Download(ctx context.Context, actor *models.Account, id int64) (*DownloadResult, error) {
	report, err := s.loadAuthorized(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.Exists(ctx, report.StorageKey)
	if err != nil {
		return nil, classify("check object", err)
	}
	if !ok {
		return nil, fmt.Errorf("object %s: %w", report.StorageKey, common.ErrorNotFound)
	}

	obj, err := s.store.Get(ctx, report.StorageKey)
	if err != nil {
		return nil, classify("get object", err)
	}
	if len(obj.Body) == 0 {
		return nil, common.ErrorEmptyObject
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = report.ContentType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	res := &DownloadResult{
		Report:      report,
		Body:        obj.Body,
		ContentType: contentType,
		FileName:    DownloadFileName(report.Name, report.ContentType),
	}

	now := s.now()
	if err := s.repomanager.Sessions(s.db).Create(ctx, &models.SessionLog{
		AccountID: actor.ID,
		TokenHash: fmt.Sprintf("download_%d_%d", report.ID, now.UnixMilli()),
		ExpiresAt: now.Add(time.Second),
	}); err != nil {
		res.Warnings = append(res.Warnings, common.Warning{Op: "log download", Err: err})
	}

	return res, nil
}

// List returns active reports, newest first. Patients only ever see their
// own; staff may narrow by owner.
func (s *ReportService) List(ctx context.Context, actor *models.Account, ownerID *int64) ([]models.Report, error) {
	if actor == nil {
		return nil, common.ErrorUnauthorized
	}

	filter := reports.ListFilter{OwnerID: ownerID}
	if !actor.Role.IsStaff() {
		own := actor.ID
		filter.OwnerID = &own
	}

	list, err := s.repomanager.Reports(s.db).List(ctx, filter)
	if err != nil {
		return nil, classify("list reports", err)
	}
	return list, nil
}

// Delete soft-deletes a report. The stored object is kept.
func (s *ReportService) Delete(ctx context.Context, actor *models.Account, id int64) error {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return err
	}
	if err := s.repomanager.Reports(s.db).SoftDelete(ctx, id, actor.ID); err != nil {
		return classify("delete report", err)
	}
	return nil
}

// PresignDownload returns a temporary direct download URL and its expiry.
func (s *ReportService) PresignDownload(ctx context.Context, actor *models.Account, id int64) (string, time.Time, error) {
	report, err := s.loadAuthorized(ctx, actor, id)
	if err != nil {
		return "", time.Time{}, err
	}
	url, err := s.store.PresignGet(ctx, report.StorageKey, PresignTTL)
	if err != nil {
		return "", time.Time{}, classify("presign", err)
	}
	return url, s.now().Add(PresignTTL), nil
}
