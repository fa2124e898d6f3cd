package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/KNICEX/stock-alert/internal/service/analysis"
	"github.com/KNICEX/stock-alert/internal/service/notification"
	"github.com/KNICEX/stock-alert/internal/service/quote"
	"github.com/KNICEX/stock-alert/pkg/decimalx"
	"github.com/stretchr/testify/mock"
)

// ============ Mock 定义 ============

type fetchResponse struct {
	samples []quote.PriceSample
	err     error
	panic   bool
}

// scriptedSource replays responses in order and repeats the last one.
type scriptedSource struct {
	mu        sync.Mutex
	responses []fetchResponse
	calls     int
	fetched   chan struct{}
}

func newScriptedSource(responses ...fetchResponse) *scriptedSource {
	return &scriptedSource{
		responses: responses,
		fetched:   make(chan struct{}, 128),
	}
}

func (s *scriptedSource) Fetch(ctx context.Context, ticker string) ([]quote.PriceSample, error) {
	s.mu.Lock()
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	resp := s.responses[idx]
	s.mu.Unlock()

	select {
	case s.fetched <- struct{}{}:
	default:
	}
	if resp.panic {
		panic("provider exploded")
	}
	return resp.samples, resp.err
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, msg notification.Message, targets notification.Targets) []notification.Result {
	args := m.Called(ctx, msg, targets)
	return args.Get(0).([]notification.Result)
}

func (m *MockDispatcher) Check(ch notification.Channel) error {
	args := m.Called(ch)
	return args.Error(0)
}

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, batch analysis.Batch) (string, error) {
	args := m.Called(ctx, batch)
	return args.String(0), args.Error(1)
}

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendText(ctx context.Context, to []string, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

func (m *MockEmailService) Validate() error {
	return m.Called().Error(0)
}

type MockSMSService struct {
	mock.Mock
}

func (m *MockSMSService) Send(ctx context.Context, to, body string) error {
	args := m.Called(ctx, to, body)
	return args.Error(0)
}

func (m *MockSMSService) Validate() error {
	return m.Called().Error(0)
}

// samplesOf 构造按分钟递增的收盘价序列
func samplesOf(closes ...string) []quote.PriceSample {
	base := time.Date(2024, 5, 2, 14, 30, 0, 0, time.UTC)
	samples := make([]quote.PriceSample, 0, len(closes))
	for i, c := range closes {
		p := decimalx.MustFromString(c)
		samples = append(samples, quote.PriceSample{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      p,
			High:      p,
			Low:       p,
			Close:     p,
			Volume:    decimalx.MustFromString("1000"),
		})
	}
	return samples
}

func data(closes ...string) fetchResponse {
	return fetchResponse{samples: samplesOf(closes...)}
}

func empty() fetchResponse {
	return fetchResponse{samples: []quote.PriceSample{}}
}
