package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/pharmadirect/pharmacy-backend/common/errors"
	"github.com/pharmadirect/pharmacy-backend/kafka"
	"github.com/pharmadirect/pharmacy-backend/models"
	"github.com/pharmadirect/pharmacy-backend/notifier"
	"github.com/pharmadirect/pharmacy-backend/repository"
	"github.com/pharmadirect/pharmacy-backend/storage"
)

// MaxPrescriptionFileSize bounds uploads at 5MB.
const MaxPrescriptionFileSize = 5 * 1024 * 1024

var allowedPrescriptionExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

// PrescriptionService tracks prescription upload and verification and
// drives the gated order transitions. Verification decisions always
// flow prescription -> order, never the reverse.
type PrescriptionService interface {
	UploadForOrder(ctx context.Context, userID string, file io.Reader, filename string, size int64, orderID uuid.UUID) (*models.Prescription, error)
	UploadUnassigned(ctx context.Context, userID string, file io.Reader, filename string, size int64) (*models.Prescription, error)
	LatestAvailablePrescription(ctx context.Context, userID string) (*models.Prescription, error)
	GetUserPrescriptions(ctx context.Context, userID string) ([]models.Prescription, error)
	GetOrderPrescriptions(ctx context.Context, userID string, orderID uuid.UUID) ([]models.Prescription, error)
	GetPendingReview(ctx context.Context) ([]models.Prescription, error)
	HasPending(ctx context.Context) (bool, error)
	Download(ctx context.Context, prescriptionID uuid.UUID) (io.ReadCloser, string, string, error)
	Verify(ctx context.Context, prescriptionID uuid.UUID, verifierID string, decision models.PrescriptionStatus, comments string) (bool, error)
	RequireMoreInfo(ctx context.Context, prescriptionID uuid.UUID, verifierID, details string) (bool, error)
}

type prescriptionServiceImpl struct {
	prescriptions repository.PrescriptionRepository
	orders        repository.OrderRepository
	files         storage.FileStore
	users         UserDirectory
	notify        notifier.Notifier
	events        kafka.OrderEventPublisher
	logger        *zap.Logger
}

// NewPrescriptionService creates a new PrescriptionService. notify,
// users and events may be nil; notifications and events are then
// skipped.
func NewPrescriptionService(
	prescriptions repository.PrescriptionRepository,
	orders repository.OrderRepository,
	files storage.FileStore,
	users UserDirectory,
	notify notifier.Notifier,
	events kafka.OrderEventPublisher,
	logger *zap.Logger,
) PrescriptionService {
	return &prescriptionServiceImpl{
		prescriptions: prescriptions,
		orders:        orders,
		files:         files,
		users:         users,
		notify:        notify,
		events:        events,
		logger:        logger,
	}
}

func validateUpload(filename string, size int64) (string, error) {
	if size <= 0 {
		return "", apperrors.Validation("no file was uploaded")
	}
	if size > MaxPrescriptionFileSize {
		return "", apperrors.Validation("file size must be less than 5MB")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedPrescriptionExtensions[ext] {
		return "", apperrors.Validation("file type not allowed, upload an image or PDF")
	}
	return ext, nil
}

// UploadForOrder stores the file and creates a Pending prescription
// linked to the order. The order's status is not touched; gating
// happens at verification time.
func (s *prescriptionServiceImpl) UploadForOrder(ctx context.Context, userID string, file io.Reader, filename string, size int64, orderID uuid.UUID) (*models.Prescription, error) {
	ext, err := validateUpload(filename, size)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if order == nil {
		return nil, apperrors.NotFound("order not found")
	}

	ref, err := s.files.Save(ctx, io.LimitReader(file, MaxPrescriptionFileSize), ext)
	if err != nil {
		return nil, apperrors.External("failed to store prescription file", err)
	}

	p := &models.Prescription{
		UserID:     userID,
		OrderID:    &orderID,
		FileURL:    ref,
		UploadDate: time.Now().UTC(),
		Status:     models.PrescriptionPending,
	}
	if err := s.prescriptions.Create(ctx, p); err != nil {
		return nil, apperrors.Persistence(err)
	}
	if err := s.orders.SetPrescriptionID(ctx, orderID, p.ID); err != nil {
		return nil, apperrors.Persistence(err)
	}
	return p, nil
}

// UploadUnassigned stores a prescription with no order link, to be
// associated by a later checkout.
func (s *prescriptionServiceImpl) UploadUnassigned(ctx context.Context, userID string, file io.Reader, filename string, size int64) (*models.Prescription, error) {
	ext, err := validateUpload(filename, size)
	if err != nil {
		return nil, err
	}

	ref, err := s.files.Save(ctx, io.LimitReader(file, MaxPrescriptionFileSize), ext)
	if err != nil {
		return nil, apperrors.External("failed to store prescription file", err)
	}

	p := &models.Prescription{
		UserID:     userID,
		FileURL:    ref,
		UploadDate: time.Now().UTC(),
		Status:     models.PrescriptionPending,
	}
	if err := s.prescriptions.Create(ctx, p); err != nil {
		return nil, apperrors.Persistence(err)
	}
	return p, nil
}

// LatestAvailablePrescription returns the user's most recent unassigned
// prescription still in Pending or Approved, or nil.
func (s *prescriptionServiceImpl) LatestAvailablePrescription(ctx context.Context, userID string) (*models.Prescription, error) {
	unassigned, err := s.prescriptions.FindUnassignedByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	for i := range unassigned {
		if unassigned[i].Available() {
			return &unassigned[i], nil
		}
	}
	return nil, nil
}

func (s *prescriptionServiceImpl) GetUserPrescriptions(ctx context.Context, userID string) ([]models.Prescription, error) {
	out, err := s.prescriptions.FindByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	return out, nil
}

// GetOrderPrescriptions lists every upload against one order, newest
// first. An order can accumulate several (a rejected scan followed by a
// legible one); the order's PrescriptionID points at the one currently
// driving its status. Ownership is checked before listing.
func (s *prescriptionServiceImpl) GetOrderPrescriptions(ctx context.Context, userID string, orderID uuid.UUID) ([]models.Prescription, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if order == nil || order.UserID != userID {
		return nil, apperrors.NotFound("order not found")
	}

	out, err := s.prescriptions.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	return out, nil
}

// GetPendingReview lists prescriptions waiting for a pharmacist, with
// linked orders materialized for the review screen.
func (s *prescriptionServiceImpl) GetPendingReview(ctx context.Context) ([]models.Prescription, error) {
	out, err := s.prescriptions.FindPending(ctx)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	return out, nil
}

func (s *prescriptionServiceImpl) HasPending(ctx context.Context) (bool, error) {
	ok, err := s.prescriptions.HasPending(ctx)
	if err != nil {
		return false, apperrors.Persistence(err)
	}
	return ok, nil
}

// Download streams the stored file with its content type and a
// client-facing filename.
func (s *prescriptionServiceImpl) Download(ctx context.Context, prescriptionID uuid.UUID) (io.ReadCloser, string, string, error) {
	p, err := s.prescriptions.FindByID(ctx, prescriptionID)
	if err != nil {
		return nil, "", "", apperrors.Persistence(err)
	}
	if p == nil {
		return nil, "", "", apperrors.NotFound("prescription not found")
	}

	rc, err := s.files.Open(ctx, p.FileURL)
	if err != nil {
		return nil, "", "", apperrors.External("failed to fetch prescription file", err)
	}
	ext := strings.ToLower(filepath.Ext(p.FileURL))
	return rc, storage.ContentTypeForExtension(ext), filepath.Base(p.FileURL), nil
}

// Verify records a pharmacist decision. Approved advances a linked
// order Pending|PaymentReceived -> Approved (refused quietly if the
// order is already past that window); Rejected pushes the order to
// Rejected. Prescription and order are written in one transaction; the
// customer notification happens only after that commit and is
// log-and-swallow.
func (s *prescriptionServiceImpl) Verify(ctx context.Context, prescriptionID uuid.UUID, verifierID string, decision models.PrescriptionStatus, comments string) (bool, error) {
	if decision != models.PrescriptionApproved && decision != models.PrescriptionRejected {
		return false, apperrors.Validation("decision must be Approved or Rejected")
	}

	p, err := s.prescriptions.FindWithOrder(ctx, prescriptionID)
	if err != nil {
		return false, apperrors.Persistence(err)
	}
	if p == nil {
		return false, nil
	}

	now := time.Now().UTC()
	p.Status = decision
	p.VerifiedByUserID = &verifierID
	p.VerificationDate = &now
	if comments != "" {
		p.Comments = &comments
	}

	orderTo := models.StatusRejected
	eventType := "prescription_rejected"
	if decision == models.PrescriptionApproved {
		orderTo = models.StatusApproved
		eventType = "prescription_approved"
	}

	orderChanged, err := s.prescriptions.ApplyVerification(ctx, p, orderTo)
	if err != nil {
		return false, apperrors.Persistence(err)
	}

	if orderChanged {
		s.logger.Info("order advanced by prescription verification",
			zap.String("prescription_id", p.ID.String()),
			zap.String("status", string(orderTo)),
		)
	}

	s.notifyDecision(ctx, p, decision, comments)
	s.publishPrescriptionEvent(eventType, p, orderTo, orderChanged)
	return true, nil
}

// RequireMoreInfo parks the prescription (and any linked order) in
// MoreInfoRequired and tells the customer what is missing.
func (s *prescriptionServiceImpl) RequireMoreInfo(ctx context.Context, prescriptionID uuid.UUID, verifierID, details string) (bool, error) {
	p, err := s.prescriptions.FindWithOrder(ctx, prescriptionID)
	if err != nil {
		return false, apperrors.Persistence(err)
	}
	if p == nil {
		return false, nil
	}

	now := time.Now().UTC()
	p.Status = models.PrescriptionMoreInfoRequired
	p.VerifiedByUserID = &verifierID
	p.VerificationDate = &now
	p.Comments = &details

	orderChanged, err := s.prescriptions.ApplyVerification(ctx, p, models.StatusMoreInfoRequired)
	if err != nil {
		return false, apperrors.Persistence(err)
	}

	s.sendMail(ctx, p.UserID,
		"Additional Information Required for Your Prescription",
		fmt.Sprintf("Please provide additional information for your prescription: %s", details))
	s.publishPrescriptionEvent("prescription_more_info", p, models.StatusMoreInfoRequired, orderChanged)
	return true, nil
}

func (s *prescriptionServiceImpl) notifyDecision(ctx context.Context, p *models.Prescription, decision models.PrescriptionStatus, comments string) {
	orderRef := "unassigned"
	if id, ok := p.AssignedOrder(); ok {
		orderRef = id.String()
	}

	var subject, body string
	if decision == models.PrescriptionApproved {
		subject = "Your Prescription Has Been Approved"
		body = fmt.Sprintf("Good news! Your prescription has been approved and your order is now being processed. Order: %s", orderRef)
	} else {
		subject = "Your Prescription Could Not Be Approved"
		body = fmt.Sprintf("Unfortunately, your prescription could not be approved. Reason: %s. Order: %s", comments, orderRef)
	}
	s.sendMail(ctx, p.UserID, subject, body)
}

// sendMail resolves the customer's email and delivers best-effort. The
// database state is the source of truth; a lost email is a log line,
// not a failure.
func (s *prescriptionServiceImpl) sendMail(ctx context.Context, userID, subject, body string) {
	if s.notify == nil || s.users == nil {
		return
	}
	email, err := s.users.EmailForUser(ctx, userID)
	if err != nil || email == "" {
		s.logger.Warn("could not resolve customer email",
			zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := s.notify.Send(ctx, email, subject, body); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *prescriptionServiceImpl) publishPrescriptionEvent(eventType string, p *models.Prescription, orderTo models.OrderStatus, orderChanged bool) {
	if s.events == nil {
		return
	}
	evt := models.OrderEvent{
		Type:           eventType,
		UserID:         p.UserID,
		PrescriptionID: p.ID.String(),
		Timestamp:      time.Now().UTC(),
	}
	if id, ok := p.AssignedOrder(); ok {
		evt.OrderID = id.String()
	}
	if orderChanged {
		evt.Status = orderTo
	}
	if err := s.events.SendOrderEvent(evt); err != nil {
		s.logger.Warn("prescription event publish failed",
			zap.String("prescription_id", p.ID.String()), zap.Error(err))
	}
}
