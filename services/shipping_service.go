package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
	aws_pkg "github.com/smarte-commerce/ecomm-shipping-sub000/pkg/aws"
	"github.com/smarte-commerce/ecomm-shipping-sub000/providers"
	"github.com/smarte-commerce/ecomm-shipping-sub000/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ShippingService covers the shipment lifecycle after a quote was accepted.
type ShippingService interface {
	CreateLabel(ctx context.Context, req *models.CreateLabelRequest) (*models.Shipment, *ServiceError)
	TrackShipment(ctx context.Context, trackingCode string) (*models.TrackingStatus, *ServiceError)
	ListShipments(ctx context.Context, filter repository.ShipmentFilter, page, limit int) ([]models.Shipment, int64, *ServiceError)
}

type shippingServiceImpl struct {
	repo        repository.ShipmentRepository
	labels      providers.LabelProvider
	snsClient   aws_pkg.SNSPublisher
	snsTopicArn string
	originAddr  models.Address // default ship-from address (warehouse)
	recorder    CountRecorder
	logger      *zap.Logger
}

// NewShippingService creates a new ShippingService.
func NewShippingService(
	repo repository.ShipmentRepository,
	labels providers.LabelProvider,
	snsClient aws_pkg.SNSPublisher,
	snsTopicArn string,
	originAddr models.Address,
	recorder CountRecorder,
	logger *zap.Logger,
) ShippingService {
	return &shippingServiceImpl{
		repo:        repo,
		labels:      labels,
		snsClient:   snsClient,
		snsTopicArn: snsTopicArn,
		originAddr:  originAddr,
		recorder:    recorder,
		logger:      logger,
	}
}

// CreateLabel buys a label for a quoted rate and persists the shipment.
// A second request for the same order returns the existing shipment.
func (s *shippingServiceImpl) CreateLabel(ctx context.Context, req *models.CreateLabelRequest) (*models.Shipment, *ServiceError) {
	if existing, err := s.repo.FindByOrderID(ctx, req.OrderID); err == nil && existing != nil {
		return existing, nil
	}
	if req.Origin.IsZero() {
		req.Origin = s.originAddr
	}

	info, err := s.labels.CreateLabel(ctx, *req)
	if err != nil {
		s.logger.Error("CreateLabel failed", zap.Error(err), zap.String("order_id", req.OrderID))
		return nil, &ServiceError{
			StatusCode: http.StatusBadGateway,
			Code:       CodeProvider,
			Message:    "Failed to create shipping label: " + err.Error(),
			Err:        err,
		}
	}

	shipment := &models.Shipment{
		OrderID:          req.OrderID,
		UserID:           req.UserID,
		QuoteID:          req.QuoteID,
		Carrier:          info.Carrier,
		ServiceLevel:     info.ServiceLevel,
		TrackingCode:     info.TrackingCode,
		LabelURL:         info.LabelURL,
		TrackingURL:      info.TrackingURL,
		ProviderObjectID: info.ProviderObject,
		Status:           models.ShipmentStatusCreated,
		WeightKg:         req.WeightKg,
		Origin:           req.Origin,
		Destination:      req.Destination,
	}

	if err := s.repo.Create(ctx, shipment); err != nil {
		s.logger.Error("Failed to persist shipment", zap.Error(err))
		return nil, &ServiceError{
			StatusCode: http.StatusInternalServerError,
			Code:       CodeInternal,
			Message:    "Failed to save shipment record",
			Err:        err,
		}
	}

	s.logger.Info("Shipment created",
		zap.String("order_id", req.OrderID),
		zap.String("quote_id", req.QuoteID),
		zap.String("tracking_code", info.TrackingCode),
	)

	recordCount(s.recorder, aws_pkg.MetricLabelsCreated, map[string]string{"Carrier": shipment.Carrier})

	s.publishEvent(ctx, shipment.OrderID, models.ShipmentCreatedEvent{
		EventType:    models.EventShipmentCreated,
		ShipmentID:   shipment.ID.String(),
		OrderID:      shipment.OrderID,
		UserID:       shipment.UserID,
		QuoteID:      shipment.QuoteID,
		TrackingCode: shipment.TrackingCode,
		Carrier:      shipment.Carrier,
		LabelURL:     shipment.LabelURL,
		Timestamp:    time.Now(),
	})

	return shipment, nil
}

// TrackShipment fetches tracking status from the provider and updates the DB record.
func (s *shippingServiceImpl) TrackShipment(ctx context.Context, trackingCode string) (*models.TrackingStatus, *ServiceError) {
	trackingCode = strings.TrimSpace(trackingCode)
	if trackingCode == "" {
		return nil, validationError("tracking code is required")
	}

	dbRecord, err := s.repo.FindByTrackingCode(ctx, trackingCode)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("Shipment lookup failed", zap.Error(err), zap.String("code", trackingCode))
		}
		dbRecord = nil
	}

	carrier := ""
	if dbRecord != nil {
		carrier = dbRecord.Carrier
	}

	status, err := s.labels.TrackShipment(ctx, carrier, trackingCode)
	if err != nil {
		s.logger.Error("TrackShipment failed", zap.Error(err))
		return nil, &ServiceError{
			StatusCode: http.StatusBadGateway,
			Code:       CodeProvider,
			Message:    "Failed to fetch tracking status: " + err.Error(),
			Err:        err,
		}
	}

	if dbRecord != nil && status.Status != "" && dbRecord.Status != status.Status {
		if updateErr := s.repo.UpdateStatus(ctx, dbRecord.ID, status.Status); updateErr != nil {
			s.logger.Warn("Failed to update shipment status", zap.Error(updateErr))
		}

		s.publishEvent(ctx, dbRecord.OrderID, models.ShipmentUpdatedEvent{
			EventType:    models.EventShipmentUpdated,
			ShipmentID:   dbRecord.ID.String(),
			OrderID:      dbRecord.OrderID,
			TrackingCode: trackingCode,
			Status:       status.Status,
			Timestamp:    time.Now(),
		})
	}

	return &status, nil
}

// ListShipments returns one page of shipments and the total match count.
func (s *shippingServiceImpl) ListShipments(ctx context.Context, filter repository.ShipmentFilter, page, limit int) ([]models.Shipment, int64, *ServiceError) {
	shipments, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		s.logger.Error("Failed to list shipments", zap.Error(err))
		return nil, 0, &ServiceError{
			StatusCode: http.StatusInternalServerError,
			Code:       CodeInternal,
			Message:    "Failed to fetch shipments",
			Err:        err,
		}
	}
	return shipments, total, nil
}

// publishEvent marshals an event and publishes it to SNS (non-fatal on error).
func (s *shippingServiceImpl) publishEvent(ctx context.Context, orderID string, event models.ShipmentEvent) {
	if s.snsClient == nil || s.snsTopicArn == "" {
		s.logger.Warn("SNS not configured, skipping event publish")
		return
	}
	b, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal SNS event", zap.Error(err))
		return
	}
	msg := aws_pkg.EventMessage{EventType: event.Type(), GroupKey: orderID, Body: b}
	if err := s.snsClient.Publish(ctx, s.snsTopicArn, msg); err != nil {
		s.logger.Error("Failed to publish SNS event", zap.String("event_type", msg.EventType), zap.Error(err))
		return
	}
	s.logger.Info("Published SNS event", zap.String("topic", s.snsTopicArn), zap.String("event_type", msg.EventType))
}
