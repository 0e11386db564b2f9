package authstate

// Executor runs the callbacks passed to PerformWithFreshToken.
type Executor interface {
	Execute(fn func())
}

// ExecutorFunc adapts a function to an Executor.
type ExecutorFunc func(fn func())

func (f ExecutorFunc) Execute(fn func()) { f(fn) }

var (
	// InlineExecutor runs the callback on the goroutine that produced the result.
	InlineExecutor Executor = ExecutorFunc(func(fn func()) { fn() })

	// GoroutineExecutor runs every callback on its own goroutine. It is the default.
	GoroutineExecutor Executor = ExecutorFunc(func(fn func()) { go fn() })
)
