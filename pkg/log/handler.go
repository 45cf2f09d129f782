package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	scigoerrors "github.com/YuminosukeSato/scigo-obesity/pkg/errors"
)

// ErrFmtHandler is a slog handler that enriches records carrying an error
// attribute with the cockroachdb stack trace and the structured error type.
type ErrFmtHandler struct {
	handler slog.Handler
}

// WrapByErrFmtHandler wraps handler so records logged with ErrAttr gain
// "stacktrace" and "error.type" attributes.
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return &ErrFmtHandler{
		handler: handler,
	}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.handler.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		err, _ = attr.Value.Any().(error)
		return false
	})
	if err != nil {
		if stacktrace := extractStacktrace(err); stacktrace != "" {
			r.AddAttrs(slog.String(StacktraceAttrKey, stacktrace))
		}
		if kind := errorType(err); kind != "" {
			r.AddAttrs(slog.String(ErrorTypeKey, kind))
		}
	}
	return eh.handler.Handle(ctx, r)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithAttrs(attrs)}
}

func (eh *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithGroup(g)}
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

// errorType names the first structured error found in the chain.
func errorType(err error) string {
	var (
		notFitted  *scigoerrors.NotFittedError
		dimension  *scigoerrors.DimensionError
		validation *scigoerrors.ValidationError
		value      *scigoerrors.ValueError
		modelErr   *scigoerrors.ModelError
		panicErr   *scigoerrors.PanicError
	)
	switch {
	case errors.As(err, &panicErr):
		return "PanicError"
	case errors.As(err, &notFitted):
		return "NotFittedError"
	case errors.As(err, &dimension):
		return "DimensionError"
	case errors.As(err, &validation):
		return "ValidationError"
	case errors.As(err, &value):
		return "ValueError"
	case errors.As(err, &modelErr):
		return "ModelError"
	}
	return ""
}
