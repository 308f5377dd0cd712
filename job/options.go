package job

// OptionKey names a job option. Its string form is the key used in the
// serialized payload.
type OptionKey string

// Well-known option keys.
const (
	OptQueue     OptionKey = "queue"
	OptRetry     OptionKey = "retry"
	OptBacktrace OptionKey = "backtrace"
	OptDead      OptionKey = "dead"
	OptTags      OptionKey = "tags"
)

func (k OptionKey) String() string { return string(k) }

// Options configures per-job behavior such as retries and queue.
type Options struct {
	// Queue is the queue name the job is pushed to.
	Queue string

	// Retry is the number of retry attempts. Zero disables retries; a
	// negative value means "use the retry subsystem's default".
	Retry int

	// Backtrace is the number of backtrace lines kept on failure.
	Backtrace int

	// Dead controls whether a job that exhausts its retries is kept in the
	// dead set.
	Dead bool

	// Tags are free-form labels shown in monitoring tools.
	Tags []string
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Queue: "default",
		Retry: -1,
		Dead:  true,
	}
}

// Option is a functional option for configuring job options.
type Option func(*Options)

// WithQueue sets the queue name for the job.
func WithQueue(q string) Option {
	return func(o *Options) {
		o.Queue = q
	}
}

// WithRetry sets the number of retry attempts.
func WithRetry(n int) Option {
	return func(o *Options) {
		o.Retry = n
	}
}

// WithBacktrace sets how many backtrace lines are kept on failure.
func WithBacktrace(lines int) Option {
	return func(o *Options) {
		o.Backtrace = lines
	}
}

// WithDead controls whether exhausted jobs are kept in the dead set.
func WithDead(keep bool) Option {
	return func(o *Options) {
		o.Dead = keep
	}
}

// WithTags sets the job's tags.
func WithTags(tags ...string) Option {
	return func(o *Options) {
		o.Tags = tags
	}
}

// NewOptions applies opts over DefaultOptions.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Map returns the options keyed by OptionKey. A negative Retry is encoded
// as true ("retry with defaults"). Dead is only present when false; zero
// Backtrace and empty Tags are omitted.
func (o Options) Map() map[OptionKey]any {
	m := map[OptionKey]any{
		OptQueue: o.Queue,
	}
	if !o.Dead {
		m[OptDead] = false
	}
	switch {
	case o.Retry < 0:
		m[OptRetry] = true
	case o.Retry == 0:
		m[OptRetry] = false
	default:
		m[OptRetry] = o.Retry
	}
	if o.Backtrace > 0 {
		m[OptBacktrace] = o.Backtrace
	}
	if len(o.Tags) > 0 {
		m[OptTags] = o.Tags
	}
	return m
}
