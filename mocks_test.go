package authrouter

import (
	"context"
	"mime/multipart"
	"sync"
	"time"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
)

// MockContext mocks router.Context. Request state (queries, params,
// cookies, headers, locals) is map backed so flows that write and then
// read within a single request work without expectation choreography;
// response methods are testify driven.
type MockContext struct {
	mock.Mock
	NextCalled bool

	MethodV string
	PathV   string
	IPV     string

	HeadersM map[string]string
	QueriesM map[string]string
	ParamsM  map[string]string
	CookiesM map[string]string
	FormM    map[string]string
	LocalsM  map[any]any

	// SetCookies records every Cookie write in order. Expired writes also
	// remove the value from CookiesM, so consume-then-read sequences behave
	// like a real client.
	SetCookies []*router.Cookie

	// RespHeaders records SetHeader writes.
	RespHeaders map[string]string
}

func NewMockContext() *MockContext {
	return &MockContext{
		MethodV:     "GET",
		PathV:       "/",
		IPV:         "203.0.113.10",
		HeadersM:    map[string]string{},
		QueriesM:    map[string]string{},
		ParamsM:     map[string]string{},
		CookiesM:    map[string]string{},
		FormM:       map[string]string{},
		LocalsM:     map[any]any{},
		RespHeaders: map[string]string{},
	}
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	return context.Background()
}

func (m *MockContext) SetContext(ctx context.Context) {}

func (m *MockContext) Path() string {
	return m.PathV
}

func (m *MockContext) Method() string {
	return m.MethodV
}

func (m *MockContext) IP() string {
	return m.IPV
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.RespHeaders[key] = val
	return m
}

func (m *MockContext) Header(key string) string {
	return m.HeadersM[key]
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.SetCookies = append(m.SetCookies, cookie)
	if cookie.Expires.Before(time.Now()) {
		delete(m.CookiesM, cookie.Name)
		return
	}
	m.CookiesM[cookie.Name] = cookie.Value
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if val, ok := m.CookiesM[key]; ok {
		return val
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if val, ok := m.ParamsM[key]; ok {
		return val
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue ...string) string {
	if val, ok := m.QueriesM[key]; ok {
		return val
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	return m.QueriesM
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	if val, ok := m.HeadersM[key]; ok {
		return val
	}
	return defaultValue
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.LocalsM[key] = value[0]
		return nil
	}
	return m.LocalsM[key]
}

func (m *MockContext) LocalsMerge(key any, value map[string]any) map[string]any {
	existing, _ := m.LocalsM[key].(map[string]any)
	merged := mergePayloads(existing, value)
	m.LocalsM[key] = merged
	return merged
}

func (m *MockContext) FormValue(key string, defaultValue ...string) string {
	if val, ok := m.FormM[key]; ok {
		return val
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *MockContext) FormFile(key string) (*multipart.FileHeader, error) {
	args := m.Called(key)
	if fh, ok := args.Get(0).(*multipart.FileHeader); ok {
		return fh, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockContext) RouteName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) RouteParams() map[string]string {
	return m.ParamsM
}

func (m *MockContext) SendStatus(status int) error {
	args := m.Called(status)
	return args.Error(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}

// lastCookie returns the most recent write for name, nil if never written.
func (m *MockContext) lastCookie(name string) *router.Cookie {
	for i := len(m.SetCookies) - 1; i >= 0; i-- {
		if m.SetCookies[i].Name == name {
			return m.SetCookies[i]
		}
	}
	return nil
}

// stubBus records every action and answers from a canned reply table keyed
// by role:cmd or role:trigger:name. Synchronized because logout fires
// actions from goroutines.
type stubBus struct {
	mu      sync.Mutex
	calls   []Message
	replies map[string]Payload
	errs    map[string]error
	done    chan string
}

func newStubBus() *stubBus {
	return &stubBus{
		replies: map[string]Payload{},
		errs:    map[string]error{},
		done:    make(chan string, 16),
	}
}

func busKey(msg Message) string {
	if msg.Trigger != "" {
		return msg.Role + ":trigger:" + msg.Trigger
	}
	return msg.Role + ":" + msg.Cmd
}

func (b *stubBus) reply(key string, out Payload) {
	b.replies[key] = out
}

func (b *stubBus) fail(key string, err error) {
	b.errs[key] = err
}

func (b *stubBus) Act(ctx context.Context, msg Message) (Payload, error) {
	key := busKey(msg)

	b.mu.Lock()
	b.calls = append(b.calls, msg)
	err := b.errs[key]
	out := b.replies[key]
	b.mu.Unlock()

	select {
	case b.done <- key:
	default:
	}

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *stubBus) callsFor(key string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Message
	for _, msg := range b.calls {
		if busKey(msg) == key {
			out = append(out, msg)
		}
	}
	return out
}

// awaitCall blocks until a bus action lands or the timeout expires. Used
// for the fire and forget logout actions.
func (b *stubBus) awaitCall(timeout time.Duration) bool {
	select {
	case <-b.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// stubStrategyLib captures Use and Authenticate calls. The returned handler
// runs outcome with the registered completion so tests can drive the
// callback contract.
type stubStrategyLib struct {
	used map[string]Strategy

	lastName string
	lastConf Payload
	lastDone Completion

	authCalls int

	// outcome runs as the strategy handler; nil means no-op.
	outcome func(c router.Context, done Completion) error
}

func newStubStrategyLib() *stubStrategyLib {
	return &stubStrategyLib{used: map[string]Strategy{}}
}

func (s *stubStrategyLib) Use(name string, strategy Strategy) {
	s.used[name] = strategy
}

func (s *stubStrategyLib) Authenticate(name string, conf Payload, done Completion) router.HandlerFunc {
	s.lastName = name
	s.lastConf = conf
	s.lastDone = done

	return func(c router.Context) error {
		s.authCalls++
		if s.outcome != nil {
			return s.outcome(c, done)
		}
		return nil
	}
}

type stubStatic struct {
	paths []string
}

func (s *stubStatic) Serve(c router.Context, path string) error {
	s.paths = append(s.paths, path)
	return nil
}

type captureLogger struct {
	errors []string
	infos  []string
	debugs []string
}

func (l *captureLogger) Error(format string, args ...any) { l.errors = append(l.errors, format) }
func (l *captureLogger) Info(format string, args ...any)  { l.infos = append(l.infos, format) }
func (l *captureLogger) Debug(format string, args ...any) { l.debugs = append(l.debugs, format) }

func newTestRouter(bus Bus, strategies StrategyLib, opts Options, options ...Option) *ServiceRouter {
	sr, err := New(bus, strategies, opts, options...)
	if err != nil {
		panic(err)
	}
	return sr
}
