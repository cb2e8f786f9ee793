package systemprompt

// ContextProvider is an interface that defines the title and info of a context provider
type ContextProvider interface {
	Title() string
	Info() string
}

// StaticContext is a ContextProvider with fixed content
type StaticContext struct {
	title string
	info  string
}

// NewStaticContext returns a ContextProvider with fixed title and info
func NewStaticContext(title string, info string) *StaticContext {
	return &StaticContext{title: title, info: info}
}

func (c StaticContext) Title() string {
	return c.title
}

func (c StaticContext) Info() string {
	return c.info
}
