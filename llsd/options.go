package llsd

const (
	// DefaultMaxDepth caps structural nesting of arrays and maps.
	DefaultMaxDepth = 1000
	// DefaultMaxStringBytes caps a single string or URI payload.
	DefaultMaxStringBytes = 10 << 20
	// DefaultMaxBinaryBytes caps a single binary payload.
	DefaultMaxBinaryBytes = 100 << 20
	// DefaultMaxCollectionSize caps entries per array or map.
	DefaultMaxCollectionSize = 1_000_000
)

// Options configures parser limits. Limits exist to make hostile input fail
// fast with ErrLimitExceeded instead of exhausting memory or the stack.
type Options struct {
	MaxDepth          int
	MaxStringBytes    int
	MaxBinaryBytes    int
	MaxCollectionSize int
}

// Option configures parser behavior.
type Option func(*Options)

// OptMaxDepth sets the maximum nesting depth of arrays and maps.
func OptMaxDepth(depth int) Option {
	return func(opts *Options) {
		opts.MaxDepth = depth
	}
}

// OptMaxStringBytes sets the maximum byte length of a string or URI payload.
func OptMaxStringBytes(maxBytes int) Option {
	return func(opts *Options) {
		opts.MaxStringBytes = maxBytes
	}
}

// OptMaxBinaryBytes sets the maximum byte length of a binary payload.
func OptMaxBinaryBytes(maxBytes int) Option {
	return func(opts *Options) {
		opts.MaxBinaryBytes = maxBytes
	}
}

// OptMaxCollectionSize sets the maximum number of entries per array or map.
func OptMaxCollectionSize(maxEntries int) Option {
	return func(opts *Options) {
		opts.MaxCollectionSize = maxEntries
	}
}

// OptSafeLimits applies conservative limits for untrusted input.
func OptSafeLimits() Option {
	return func(opts *Options) {
		opts.MaxDepth = 64
		opts.MaxStringBytes = 1 << 20
		opts.MaxBinaryBytes = 8 << 20
		opts.MaxCollectionSize = 100_000
	}
}

func defaultOptions() Options {
	return Options{
		MaxDepth:          DefaultMaxDepth,
		MaxStringBytes:    DefaultMaxStringBytes,
		MaxBinaryBytes:    DefaultMaxBinaryBytes,
		MaxCollectionSize: DefaultMaxCollectionSize,
	}
}

func applyOptions(opts []Option) Options {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
