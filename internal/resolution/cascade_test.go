package resolution_test

//go:generate mockgen -source=cascade.go -destination=mocks/mocks.go -package=mocks Lookup,Cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"devicelink/internal/mdall"
	"devicelink/internal/platform/metrics"
	"devicelink/internal/resolution"
	"devicelink/internal/resolution/mocks"
	"devicelink/pkg/platform/circuit"
	"devicelink/pkg/platform/sentinel"
)

type CascadeSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	lookup  *mocks.MockLookup
	metrics *metrics.Metrics
	cascade *resolution.Cascade
}

func TestCascadeSuite(t *testing.T) {
	suite.Run(t, new(CascadeSuite))
}

func (s *CascadeSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.lookup = mocks.NewMockLookup(s.ctrl)
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.cascade = resolution.New(s.lookup,
		resolution.WithRetries(2),
		resolution.WithRetryDelay(0),
		resolution.WithMetrics(s.metrics),
	)
}

func timeoutErr() error {
	return mdall.NewLookupError(mdall.ErrorTimeout, mdall.EndpointIdentifier, "request failed", context.DeadlineExceeded)
}

func device(id string) *mdall.Device {
	return &mdall.Device{
		DeviceID:      mdall.DeviceID(id),
		TradeName:     "TRIATHLON X3 INSERT",
		LicenceNumber: "65432",
		CompanyName:   "HOWMEDICA OSTEONICS CORP.",
	}
}

// =============================================================================
// Stage ordering
// =============================================================================

func (s *CascadeSuite) TestFirstStageShortCircuits() {
	s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "12-A-34", mdall.Active).
		Return([]mdall.Match{{DeviceID: "7", DeviceIdentifier: "12-A-34"}}, nil).Times(1)
	s.lookup.EXPECT().Device(gomock.Any(), mdall.DeviceID("7"), mdall.Active).
		Return(device("7"), nil).Times(1)

	out := s.cascade.Resolve(context.Background(), "12-A-34", "12A34")

	s.Equal(resolution.KindFound, out.Kind)
	s.Equal(resolution.LabelActiveFormatted, out.Stage)
	s.Equal(resolution.LabelActiveFormatted, out.State())
	s.False(out.Archived)
	s.Equal("7", out.DeviceID)
	s.Equal("TRIATHLON X3 INSERT", out.DeviceName())
	s.Equal("65432", out.Licence())
	s.Equal("HOWMEDICA OSTEONICS CORP.", out.ManufacturerName)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.StageHits.WithLabelValues(resolution.LabelActiveFormatted)))
}

func (s *CascadeSuite) TestExhaustiveNotFoundQueriesAllFourStages() {
	gomock.InOrder(
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "1234-56-789", mdall.Active).Return(nil, nil),
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "123456789", mdall.Active).Return([]mdall.Match{}, nil),
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "1234-56-789", mdall.Archived).Return(nil, nil),
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "123456789", mdall.Archived).Return(nil, nil),
	)

	out := s.cascade.Resolve(context.Background(), "1234-56-789", "123456789")

	s.Equal(resolution.KindNotFound, out.Kind)
	s.Equal(resolution.LabelArchivedRaw, out.Stage)
	s.Equal(resolution.StateNotFound, out.State())
	s.Equal("Not found", out.DeviceName())
	s.Equal(mdall.NotAvailable, out.Licence())
	s.False(out.Malformed)
}

func (s *CascadeSuite) TestArchivedMatchCarriesStateToDeviceQuery() {
	gomock.InOrder(
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", mdall.Active).Return(nil, nil),
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "R", mdall.Active).Return(nil, nil),
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", mdall.Archived).Return(nil, nil),
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "R", mdall.Archived).
			Return([]mdall.Match{{DeviceID: "99"}, {DeviceID: "100"}}, nil),
		s.lookup.EXPECT().Device(gomock.Any(), mdall.DeviceID("99"), mdall.Archived).Return(device("99"), nil),
	)

	out := s.cascade.Resolve(context.Background(), "F", "R")

	s.Equal(resolution.KindFound, out.Kind)
	s.Equal(resolution.LabelArchivedRaw, out.State())
	s.True(out.Archived)
	s.Equal("99", out.DeviceID)
}

func (s *CascadeSuite) TestEmptyRawNumberSkipsRawStages() {
	gomock.InOrder(
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", mdall.Active).Return(nil, nil),
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", mdall.Archived).Return(nil, nil),
	)

	out := s.cascade.Resolve(context.Background(), "F", "  ")

	s.Equal(resolution.KindNotFound, out.Kind)
	s.Equal(resolution.LabelArchivedFormatted, out.Stage)
}

func (s *CascadeSuite) TestInputsAreTrimmed() {
	s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", mdall.Active).
		Return([]mdall.Match{{DeviceID: "1"}}, nil)
	s.lookup.EXPECT().Device(gomock.Any(), mdall.DeviceID("1"), mdall.Active).Return(device("1"), nil)

	out := s.cascade.Resolve(context.Background(), " F\t", " R ")
	s.Equal(resolution.KindFound, out.Kind)
}

func (s *CascadeSuite) TestEmptyIdentifierIsStillQueried() {
	gomock.InOrder(
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "", mdall.Active).Return(nil, nil),
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "R", mdall.Active).Return(nil, nil),
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "", mdall.Archived).Return(nil, nil),
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "R", mdall.Archived).Return(nil, nil),
	)

	out := s.cascade.Resolve(context.Background(), " ", "R")

	s.Equal(resolution.KindNotFound, out.Kind)
	s.Equal(resolution.LabelArchivedRaw, out.Stage)
}

func (s *CascadeSuite) TestBothValuesEmptyQueriesIdentifierStagesOnly() {
	gomock.InOrder(
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "", mdall.Active).Return(nil, nil),
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "", mdall.Archived).Return(nil, nil),
	)

	out := s.cascade.Resolve(context.Background(), "", "")

	s.Equal(resolution.KindNotFound, out.Kind)
	s.Equal(resolution.LabelArchivedFormatted, out.Stage)
	s.Equal(resolution.StateNotFound, out.State())
}

// =============================================================================
// Malformed responses
// =============================================================================

func (s *CascadeSuite) TestMatchWithoutDeviceIDHaltsCascade() {
	gomock.InOrder(
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", mdall.Active).Return(nil, nil),
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "R", mdall.Active).
			Return([]mdall.Match{{DeviceIdentifier: "R"}}, nil),
	)

	out := s.cascade.Resolve(context.Background(), "F", "R")

	s.Equal(resolution.KindNotFound, out.Kind)
	s.True(out.Malformed)
	s.Equal(resolution.LabelActiveRaw, out.Stage)
	s.Equal(resolution.LabelActiveRaw, out.State())
}

func (s *CascadeSuite) TestNilDeviceRecordIsError() {
	s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", mdall.Active).
		Return([]mdall.Match{{DeviceID: "5"}}, nil)
	s.lookup.EXPECT().Device(gomock.Any(), mdall.DeviceID("5"), mdall.Active).Return(nil, nil)

	out := s.cascade.Resolve(context.Background(), "F", "R")

	s.Equal(resolution.KindError, out.Kind)
	s.Equal(resolution.StateError, out.State())
}

// =============================================================================
// Retry policy
// =============================================================================

func (s *CascadeSuite) TestRetryExhaustionHaltsCascade() {
	gomock.InOrder(
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", mdall.Active).Return(nil, nil),
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "R", mdall.Active).Return(nil, timeoutErr()).Times(3),
	)

	out := s.cascade.Resolve(context.Background(), "F", "R")

	s.Equal(resolution.KindError, out.Kind)
	s.Equal(resolution.StateError, out.State())
	s.Contains(out.DeviceName(), "Error: ")
	s.Contains(out.Message, "timeout")
	s.Equal(2.0, testutil.ToFloat64(s.metrics.LookupRetries.WithLabelValues(mdall.EndpointIdentifier)))
}

func (s *CascadeSuite) TestTransientFailureRecovers() {
	gomock.InOrder(
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", mdall.Active).Return(nil, timeoutErr()),
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", mdall.Active).
			Return([]mdall.Match{{DeviceID: "3"}}, nil),
		s.lookup.EXPECT().Device(gomock.Any(), mdall.DeviceID("3"), mdall.Active).Return(device("3"), nil),
	)

	out := s.cascade.Resolve(context.Background(), "F", "R")

	s.Equal(resolution.KindFound, out.Kind)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.LookupRetries.WithLabelValues(mdall.EndpointIdentifier)))
}

func (s *CascadeSuite) TestDeviceQueryIsRetried() {
	outage := mdall.NewLookupError(mdall.ErrorServiceOutage, mdall.EndpointDevice, "unexpected status code: 503", nil)
	gomock.InOrder(
		s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", mdall.Active).
			Return([]mdall.Match{{DeviceID: "3"}}, nil),
		s.lookup.EXPECT().Device(gomock.Any(), mdall.DeviceID("3"), mdall.Active).Return(nil, outage).Times(2),
		s.lookup.EXPECT().Device(gomock.Any(), mdall.DeviceID("3"), mdall.Active).Return(device("3"), nil),
	)

	out := s.cascade.Resolve(context.Background(), "F", "R")

	s.Equal(resolution.KindFound, out.Kind)
	s.Equal(2.0, testutil.ToFloat64(s.metrics.LookupRetries.WithLabelValues(mdall.EndpointDevice)))
}

func (s *CascadeSuite) TestDeviceQueryExhaustionIsError() {
	outage := mdall.NewLookupError(mdall.ErrorServiceOutage, mdall.EndpointDevice, "unexpected status code: 503", nil)
	s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", mdall.Active).
		Return([]mdall.Match{{DeviceID: "3"}}, nil)
	s.lookup.EXPECT().Device(gomock.Any(), mdall.DeviceID("3"), mdall.Active).Return(nil, outage).Times(3)

	out := s.cascade.Resolve(context.Background(), "F", "R")

	s.Equal(resolution.KindError, out.Kind)
	s.Contains(out.Message, "503")
}

func (s *CascadeSuite) TestNonRetryableErrorIsNotRepeated() {
	canceled := mdall.NewLookupError(mdall.ErrorCanceled, mdall.EndpointIdentifier, "request failed", context.Canceled)
	s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", mdall.Active).Return(nil, canceled).Times(1)

	out := s.cascade.Resolve(context.Background(), "F", "R")

	s.Equal(resolution.KindError, out.Kind)
	s.Zero(testutil.ToFloat64(s.metrics.LookupRetries.WithLabelValues(mdall.EndpointIdentifier)))
}

func (s *CascadeSuite) TestZeroRetriesMakesSingleAttempt() {
	cascade := resolution.New(s.lookup, resolution.WithRetries(0), resolution.WithRetryDelay(0))
	s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", mdall.Active).Return(nil, timeoutErr()).Times(1)

	out := cascade.Resolve(context.Background(), "F", "R")
	s.Equal(resolution.KindError, out.Kind)
}

func (s *CascadeSuite) TestCanceledContextStopsRetries() {
	ctx, cancel := context.WithCancel(context.Background())
	s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", mdall.Active).
		DoAndReturn(func(context.Context, string, mdall.ListingState) ([]mdall.Match, error) {
			cancel()
			return nil, timeoutErr()
		}).Times(1)

	out := s.cascade.Resolve(ctx, "F", "R")
	s.Equal(resolution.KindError, out.Kind)
}

// =============================================================================
// Cache
// =============================================================================

func (s *CascadeSuite) TestCacheHitBypassesLookup() {
	cache := mocks.NewMockCache(s.ctrl)
	cascade := resolution.New(s.lookup, resolution.WithCache(cache), resolution.WithMetrics(s.metrics))
	cached := resolution.Outcome{Kind: resolution.KindFound, Stage: resolution.LabelActiveRaw, TradeName: "CACHED"}

	cache.EXPECT().Get(gomock.Any(), resolution.Key{Formatted: "F", Raw: "R"}).Return(cached, nil)

	out := cascade.Resolve(context.Background(), "F", "R")

	s.Equal(cached, out)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("hit")))
}

func (s *CascadeSuite) TestCacheMissStoresOutcome() {
	cache := mocks.NewMockCache(s.ctrl)
	cascade := resolution.New(s.lookup, resolution.WithCache(cache), resolution.WithRetryDelay(0))
	key := resolution.Key{Formatted: "F", Raw: ""}

	cache.EXPECT().Get(gomock.Any(), key).Return(resolution.Outcome{}, sentinel.ErrNotFound)
	s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", gomock.Any()).Return(nil, nil).Times(2)
	cache.EXPECT().Put(gomock.Any(), key, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ resolution.Key, out resolution.Outcome) error {
			s.Equal(resolution.KindNotFound, out.Kind)
			return nil
		})

	out := cascade.Resolve(context.Background(), "F", "")
	s.Equal(resolution.KindNotFound, out.Kind)
}

func (s *CascadeSuite) TestErrorOutcomeIsNotCached() {
	cache := mocks.NewMockCache(s.ctrl)
	cascade := resolution.New(s.lookup, resolution.WithCache(cache), resolution.WithRetries(0))

	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(resolution.Outcome{}, sentinel.ErrNotFound)
	s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", mdall.Active).Return(nil, timeoutErr())
	cache.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	out := cascade.Resolve(context.Background(), "F", "R")
	s.Equal(resolution.KindError, out.Kind)
}

func (s *CascadeSuite) TestCacheFailuresAreIgnored() {
	cache := mocks.NewMockCache(s.ctrl)
	cascade := resolution.New(s.lookup, resolution.WithCache(cache))

	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(resolution.Outcome{}, errors.New("connection refused"))
	s.lookup.EXPECT().FindByIdentifier(gomock.Any(), "F", mdall.Active).
		Return([]mdall.Match{{DeviceID: "1"}}, nil)
	s.lookup.EXPECT().Device(gomock.Any(), mdall.DeviceID("1"), mdall.Active).Return(device("1"), nil)
	cache.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

	out := cascade.Resolve(context.Background(), "F", "R")
	s.Equal(resolution.KindFound, out.Kind)
}

func (s *CascadeSuite) TestRepeatedCacheFailuresBypassTheCache() {
	cache := mocks.NewMockCache(s.ctrl)
	breaker := circuit.New("test-cache", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	cascade := resolution.New(s.lookup, resolution.WithCache(cache), resolution.WithCacheBreaker(breaker))

	// Read fails, write fails: the breaker opens after the first row.
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(resolution.Outcome{}, errors.New("connection refused")).Times(1)
	cache.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("connection refused")).Times(1)
	s.lookup.EXPECT().FindByIdentifier(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).Times(8)

	s.Equal(resolution.KindNotFound, cascade.Resolve(context.Background(), "F", "R").Kind)
	s.True(breaker.IsOpen())

	s.Equal(resolution.KindNotFound, cascade.Resolve(context.Background(), "F", "R").Kind)
}
