package contracts

import (
	"context"
	"time"
)

// PointForecaster 포인트 예측 모델 공통 인터페이스
// 앙상블과 백테스트 하네스는 이 인터페이스에만 의존한다
type PointForecaster interface {
	// Name returns the registry model identifier
	Name() string

	// Fit trains the model on history (date <= cutoff only)
	Fit(ctx context.Context, history []SalesObservation) error

	// Predict generates quantile predictions for the target dates
	Predict(ctx context.Context, targets []time.Time) ([]QuantilePoint, error)
}

// ModelFactory 모델 생성자 (백테스트 컷오프마다 새 인스턴스)
type ModelFactory func() PointForecaster

// ModelRegistry 태그된 모델 레지스트리
type ModelRegistry struct {
	order     []string
	factories map[string]ModelFactory
	optional  map[string]bool
}

// NewModelRegistry creates an empty registry
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		factories: make(map[string]ModelFactory),
		optional:  make(map[string]bool),
	}
}

// Register adds a required model constructor
func (r *ModelRegistry) Register(name string, factory ModelFactory) {
	r.add(name, factory, false)
}

// RegisterOptional adds a model whose failure must not abort a run
// 딥 모델처럼 외부 의존성이 있는 모델용
func (r *ModelRegistry) RegisterOptional(name string, factory ModelFactory) {
	r.add(name, factory, true)
}

func (r *ModelRegistry) add(name string, factory ModelFactory, optional bool) {
	if _, exists := r.factories[name]; !exists {
		r.order = append(r.order, name)
	}
	r.factories[name] = factory
	r.optional[name] = optional
}

// Names returns registered model names in registration order
func (r *ModelRegistry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// New constructs a fresh model instance by name
func (r *ModelRegistry) New(name string) (PointForecaster, bool) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, false
	}
	return factory(), true
}

// IsOptional reports whether a model's failure is recoverable
func (r *ModelRegistry) IsOptional(name string) bool {
	return r.optional[name]
}
