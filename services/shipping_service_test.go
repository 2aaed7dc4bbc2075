package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
	aws_pkg "github.com/smarte-commerce/ecomm-shipping-sub000/pkg/aws"
	"github.com/smarte-commerce/ecomm-shipping-sub000/repository"
	"github.com/smarte-commerce/ecomm-shipping-sub000/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ---- mock repository ----

type mockShipmentRepo struct {
	created                *models.Shipment
	createErr              error
	findByOrderIDShipment  *models.Shipment
	findByOrderIDErr       error
	findByTrackingShipment *models.Shipment
	findByTrackingErr      error
	updatedStatus          string
	updateErr              error
	listShipments          []models.Shipment
	listTotal              int64
	listErr                error
	listFilter             repository.ShipmentFilter
}

func (m *mockShipmentRepo) Create(_ context.Context, s *models.Shipment) error {
	if m.createErr != nil {
		return m.createErr
	}
	s.ID = uuid.New()
	m.created = s
	return nil
}
func (m *mockShipmentRepo) FindByID(_ context.Context, _ uuid.UUID) (*models.Shipment, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *mockShipmentRepo) FindByOrderID(_ context.Context, _ string) (*models.Shipment, error) {
	return m.findByOrderIDShipment, m.findByOrderIDErr
}
func (m *mockShipmentRepo) FindByTrackingCode(_ context.Context, _ string) (*models.Shipment, error) {
	return m.findByTrackingShipment, m.findByTrackingErr
}
func (m *mockShipmentRepo) UpdateStatus(_ context.Context, _ uuid.UUID, status string) error {
	m.updatedStatus = status
	return m.updateErr
}
func (m *mockShipmentRepo) List(_ context.Context, filter repository.ShipmentFilter, _, _ int) ([]models.Shipment, int64, error) {
	m.listFilter = filter
	return m.listShipments, m.listTotal, m.listErr
}

// ---- mock label provider ----

type mockLabelProvider struct {
	info        models.TrackingInfo
	labelErr    error
	lastLabel   models.CreateLabelRequest
	status      models.TrackingStatus
	trackErr    error
	lastCarrier string
}

func (p *mockLabelProvider) CreateLabel(_ context.Context, req models.CreateLabelRequest) (models.TrackingInfo, error) {
	p.lastLabel = req
	return p.info, p.labelErr
}
func (p *mockLabelProvider) TrackShipment(_ context.Context, carrier, _ string) (models.TrackingStatus, error) {
	p.lastCarrier = carrier
	return p.status, p.trackErr
}

// ---- mock SNS publisher ----

type mockSNS struct {
	publishErr error
	messages   [][]byte
	eventTypes []string
	groupKeys  []string
}

func (m *mockSNS) Publish(_ context.Context, _ string, msg aws_pkg.EventMessage) error {
	m.messages = append(m.messages, msg.Body)
	m.eventTypes = append(m.eventTypes, msg.EventType)
	m.groupKeys = append(m.groupKeys, msg.GroupKey)
	return m.publishErr
}

// ---- helper ----

var warehouse = models.Address{Name: "Warehouse", Street1: "1 W St", City: "SF", State: "CA", PostalCode: "94105", Country: "US"}

func newTestService(repo *mockShipmentRepo, provider *mockLabelProvider, sns *mockSNS) services.ShippingService {
	logger, _ := zap.NewDevelopment()
	return services.NewShippingService(repo, provider, sns, "arn:aws:sns:us-east-1:000000000000:shipping", warehouse, nil, logger)
}

// ---- tests ----

func TestCreateLabel_Success(t *testing.T) {
	repo := &mockShipmentRepo{findByOrderIDErr: gorm.ErrRecordNotFound}
	provider := &mockLabelProvider{
		info: models.TrackingInfo{
			TrackingCode:   "1Z123",
			LabelURL:       "https://ship.po/label.pdf",
			TrackingURL:    "https://usps.com/track",
			Carrier:        "USPS",
			ProviderObject: "obj_123",
		},
	}
	sns := &mockSNS{}
	svc := newTestService(repo, provider, sns)

	req := &models.CreateLabelRequest{
		OrderID:     "o1",
		UserID:      "u1",
		RateID:      "rate_1",
		QuoteID:     "q-1",
		WeightKg:    decimal.NewFromInt(2),
		Destination: models.Address{Country: "US", PostalCode: "10001"},
	}
	shipment, svcErr := svc.CreateLabel(context.Background(), req)
	require.Nil(t, svcErr)
	assert.Equal(t, "1Z123", shipment.TrackingCode)
	assert.Equal(t, "obj_123", shipment.ProviderObjectID)
	assert.Equal(t, "q-1", shipment.QuoteID)
	assert.Equal(t, models.ShipmentStatusCreated, shipment.Status)
	assert.Equal(t, warehouse, provider.lastLabel.Origin, "missing origin defaults to the warehouse")

	require.Len(t, sns.messages, 1)
	var event models.ShipmentCreatedEvent
	require.NoError(t, json.Unmarshal(sns.messages[0], &event))
	assert.Equal(t, models.EventShipmentCreated, event.EventType)
	assert.Equal(t, "q-1", event.QuoteID)
	assert.Equal(t, []string{models.EventShipmentCreated}, sns.eventTypes)
	assert.Equal(t, []string{req.OrderID}, sns.groupKeys)
}

func TestCreateLabel_DuplicateOrder(t *testing.T) {
	existing := &models.Shipment{OrderID: "o2", Status: models.ShipmentStatusCreated}
	repo := &mockShipmentRepo{findByOrderIDShipment: existing}
	provider := &mockLabelProvider{labelErr: errors.New("must not be called")}
	svc := newTestService(repo, provider, &mockSNS{})

	req := &models.CreateLabelRequest{OrderID: "o2", UserID: "u2", RateID: "rate_2", WeightKg: decimal.NewFromInt(1)}
	shipment, svcErr := svc.CreateLabel(context.Background(), req)
	assert.Nil(t, svcErr)
	assert.Equal(t, existing, shipment)
	assert.Empty(t, provider.lastLabel.RateID)
}

func TestCreateLabel_ProviderError(t *testing.T) {
	repo := &mockShipmentRepo{findByOrderIDErr: gorm.ErrRecordNotFound}
	provider := &mockLabelProvider{labelErr: errors.New("carrier rejected")}
	svc := newTestService(repo, provider, &mockSNS{})

	_, svcErr := svc.CreateLabel(context.Background(), &models.CreateLabelRequest{OrderID: "o3", UserID: "u3", RateID: "r3"})
	require.NotNil(t, svcErr)
	assert.Equal(t, 502, svcErr.StatusCode)
	assert.Equal(t, services.CodeProvider, svcErr.Code)
	assert.Nil(t, repo.created)
}

func TestCreateLabel_PersistError(t *testing.T) {
	repo := &mockShipmentRepo{findByOrderIDErr: gorm.ErrRecordNotFound, createErr: errors.New("db down")}
	sns := &mockSNS{}
	svc := newTestService(repo, &mockLabelProvider{info: models.TrackingInfo{TrackingCode: "T"}}, sns)

	_, svcErr := svc.CreateLabel(context.Background(), &models.CreateLabelRequest{OrderID: "o4", UserID: "u4", RateID: "r4"})
	require.NotNil(t, svcErr)
	assert.Equal(t, 500, svcErr.StatusCode)
	assert.Empty(t, sns.messages)
}

func TestTrackShipment_UpdatesStatus(t *testing.T) {
	existing := &models.Shipment{ID: uuid.New(), OrderID: "o4", Carrier: "usps", Status: models.ShipmentStatusCreated}
	repo := &mockShipmentRepo{findByTrackingShipment: existing}
	provider := &mockLabelProvider{
		status: models.TrackingStatus{TrackingCode: "TRK1", Status: models.ShipmentStatusInTransit, Carrier: "usps"},
	}
	sns := &mockSNS{}
	svc := newTestService(repo, provider, sns)

	status, svcErr := svc.TrackShipment(context.Background(), "TRK1")
	require.Nil(t, svcErr)
	assert.Equal(t, models.ShipmentStatusInTransit, status.Status)
	assert.Equal(t, "usps", provider.lastCarrier)
	assert.Equal(t, models.ShipmentStatusInTransit, repo.updatedStatus)
	assert.Len(t, sns.messages, 1)
	assert.Equal(t, []string{models.EventShipmentUpdated}, sns.eventTypes)
}

func TestTrackShipment_UnchangedStatusSkipsUpdate(t *testing.T) {
	existing := &models.Shipment{ID: uuid.New(), Status: models.ShipmentStatusInTransit}
	repo := &mockShipmentRepo{findByTrackingShipment: existing}
	provider := &mockLabelProvider{status: models.TrackingStatus{Status: models.ShipmentStatusInTransit}}
	sns := &mockSNS{}
	svc := newTestService(repo, provider, sns)

	_, svcErr := svc.TrackShipment(context.Background(), "TRK2")
	require.Nil(t, svcErr)
	assert.Empty(t, repo.updatedStatus)
	assert.Empty(t, sns.messages)
}

func TestTrackShipment_ProviderError(t *testing.T) {
	repo := &mockShipmentRepo{findByTrackingErr: gorm.ErrRecordNotFound}
	provider := &mockLabelProvider{trackErr: errors.New("carrier down")}
	svc := newTestService(repo, provider, &mockSNS{})

	_, svcErr := svc.TrackShipment(context.Background(), "TRK_FAIL")
	require.NotNil(t, svcErr)
	assert.Equal(t, 502, svcErr.StatusCode)
	assert.Empty(t, provider.lastCarrier)
}

func TestTrackShipment_EmptyCode(t *testing.T) {
	svc := newTestService(&mockShipmentRepo{}, &mockLabelProvider{}, &mockSNS{})

	_, svcErr := svc.TrackShipment(context.Background(), "  ")
	require.NotNil(t, svcErr)
	assert.Equal(t, services.CodeValidation, svcErr.Code)
}

func TestListShipments(t *testing.T) {
	repo := &mockShipmentRepo{listShipments: []models.Shipment{{OrderID: "o1"}}, listTotal: 7}
	svc := newTestService(repo, &mockLabelProvider{}, &mockSNS{})

	filter := repository.ShipmentFilter{UserID: "u1", Status: models.ShipmentStatusCreated}
	shipments, total, svcErr := svc.ListShipments(context.Background(), filter, 1, 10)
	require.Nil(t, svcErr)
	assert.Len(t, shipments, 1)
	assert.Equal(t, int64(7), total)
	assert.Equal(t, filter, repo.listFilter)

	repo.listErr = errors.New("db down")
	_, _, svcErr = svc.ListShipments(context.Background(), filter, 1, 10)
	require.NotNil(t, svcErr)
	assert.Equal(t, 500, svcErr.StatusCode)
}
