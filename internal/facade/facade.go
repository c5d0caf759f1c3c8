// Package facade exposes the record store as named operations with JSON
// arguments and structured result envelopes. The CLI, the HTTP bridge and
// any out-of-process UI all go through it.
package facade

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/logging"
	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store"
)

// Request names an operation and carries its arguments
type Request struct {
	Operation string          `json:"operation"`
	Args      json.RawMessage `json:"args,omitempty"`
}

// Response is the result envelope of every operation
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes beyond the apperr kinds
const (
	CodeCreateFailed     = "CREATE_FAILED"
	CodeUpdateFailed     = "UPDATE_FAILED"
	CodeDeleteFailed     = "DELETE_FAILED"
	CodeGetFailed        = "GET_FAILED"
	CodeListFailed       = "LIST_FAILED"
	CodeSearchFailed     = "SEARCH_FAILED"
	CodeReorderFailed    = "REORDER_FAILED"
	CodeImportFailed     = "IMPORT_FAILED"
	CodeExportFailed     = "EXPORT_FAILED"
	CodeRevealFailed     = "REVEAL_FAILED"
	CodeRenderFailed     = "RENDER_FAILED"
	CodeMigrationFailed  = "MIGRATION_FAILED"
	CodeConnectionFailed = "CONNECTION_FAILED"
)

// Migrator copies the embedded store into the remote one
type Migrator interface {
	Migrate(ctx context.Context) (models.MigrationResult, error)
}

// MigratorFunc adapts a function to Migrator
type MigratorFunc func(ctx context.Context) (models.MigrationResult, error)

func (f MigratorFunc) Migrate(ctx context.Context) (models.MigrationResult, error) {
	return f(ctx)
}

// ConnectionTester probes the remote backend and returns its location
type ConnectionTester func(ctx context.Context) (string, error)

type handler func(ctx context.Context, args json.RawMessage) (any, error)

type operation struct {
	failCode string
	handle   handler
}

// Facade dispatches requests to the store
type Facade struct {
	store    store.Store
	picker   FilePicker
	migrator Migrator
	tester   ConnectionTester
	logger   *zap.Logger
	now      func() time.Time
	ops      map[string]operation
}

type Option func(*Facade)

func WithFilePicker(p FilePicker) Option {
	return func(f *Facade) { f.picker = p }
}

func WithMigrator(m Migrator) Option {
	return func(f *Facade) { f.migrator = m }
}

func WithConnectionTester(t ConnectionTester) Option {
	return func(f *Facade) { f.tester = t }
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Facade) { f.logger = logging.OrNop(l) }
}

// WithClock replaces time.Now for default export file names
func WithClock(now func() time.Time) Option {
	return func(f *Facade) { f.now = now }
}

// New builds a façade over s. Without a FilePicker, export and import
// need an explicit path.
func New(s store.Store, opts ...Option) *Facade {
	f := &Facade{
		store:  s,
		picker: noPicker{},
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.tester == nil {
		f.tester = func(ctx context.Context) (string, error) {
			if err := s.Ping(ctx); err != nil {
				return "", err
			}
			return s.Location(), nil
		}
	}
	f.ops = f.routes()
	return f
}

// Operations lists the supported operation names in sorted order
func (f *Facade) Operations() []string {
	names := make([]string, 0, len(f.ops))
	for name := range f.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle runs one request. It never returns a Go error: failures are
// reported inside the envelope.
func (f *Facade) Handle(ctx context.Context, req Request) Response {
	requestID := uuid.NewString()[:8]
	log := f.logger.With(zap.String("request_id", requestID), zap.String("operation", req.Operation))

	op, ok := f.ops[req.Operation]
	if !ok {
		log.Warn("Unknown operation")
		return failure(apperr.KindValidation, apperr.Validation("unknown operation %q", req.Operation))
	}

	start := time.Now()
	data, err := op.handle(ctx, req.Args)
	if err != nil {
		code := errorCode(err, op.failCode)
		if code == string(apperr.KindCancelled) {
			log.Info("Operation cancelled")
		} else {
			log.Error("Operation failed", zap.String("code", code), zap.Error(err))
		}
		return failure(apperr.Kind(code), err)
	}

	log.Debug("Operation completed", zap.Duration("duration", time.Since(start)))
	return Response{Success: true, Data: data}
}

// Call is Handle for in-process callers holding typed arguments
func (f *Facade) Call(ctx context.Context, operation string, args any) Response {
	var raw json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return failure(apperr.KindValidation, apperr.Validation("invalid arguments: %v", err))
		}
		raw = b
	}
	return f.Handle(ctx, Request{Operation: operation, Args: raw})
}

func failure(code apperr.Kind, err error) Response {
	return Response{Error: &ErrorBody{Code: string(code), Message: err.Error()}}
}

// errorCode maps an error to its response code, defaulting to failCode
func errorCode(err error, failCode string) string {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return string(apperr.KindValidation)
	case apperr.KindNotFound:
		return string(apperr.KindNotFound)
	case apperr.KindCancelled:
		return string(apperr.KindCancelled)
	case apperr.KindInvalidFormat:
		return string(apperr.KindInvalidFormat)
	}
	if errors.Is(err, context.Canceled) {
		return string(apperr.KindCancelled)
	}
	return failCode
}

// decode unmarshals args into v. Missing args decode to the zero value.
func decode(args json.RawMessage, v any) error {
	trimmed := strings.TrimSpace(string(args))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("invalid arguments: %v", err)
	}
	return nil
}
