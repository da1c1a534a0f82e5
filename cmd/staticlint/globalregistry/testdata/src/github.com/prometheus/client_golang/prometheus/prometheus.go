package prometheus

type Collector interface{}

type Registerer interface {
	Register(Collector) error
	MustRegister(...Collector)
}

type Gatherer interface{}

type Registry struct{}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) Register(Collector) error { return nil }

func (r *Registry) MustRegister(...Collector) {}

var (
	DefaultRegisterer Registerer = NewRegistry()
	DefaultGatherer   Gatherer   = NewRegistry()
)

func Register(Collector) error { return nil }

func MustRegister(...Collector) {}

func Unregister(Collector) bool { return true }

type Counter struct{}

type CounterOpts struct{ Name string }

func NewCounter(CounterOpts) *Counter { return &Counter{} }
