package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

var (
	errInvalidID    = "must be a positive integer"
	errInvalidScore = "must be a number between 0 and 100"
	msgValidation   = "invalid input"
	msgInternal     = "internal server error"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var (
			code    int
			message string
			data    interface{}
		)

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = fmt.Sprint(origErr.Message)
		case validator.ValidationErrors:
			vErr := core.TranslateValidationErrors(origErr, translator).(*core.ValidationError)
			code = http.StatusBadRequest
			message = vErr.Error()
			data = vErr.FieldMap()
		case *core.ValidationError:
			code = http.StatusBadRequest
			message = origErr.Error()
			if message == "" {
				message = msgValidation
			}
			data = origErr.FieldMap()
		default:
			switch {
			case grade.IsNotFound(err):
				code = http.StatusNotFound
				message = errors.Cause(err).Error()
			case grade.IsConflict(err):
				code = http.StatusConflict
				message = errors.Cause(err).Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				message = msgInternal

				reqID := ctx.Response().Header().Get(echo.HeaderXRequestID)
				logger.Error(msgInternal, errors.Wrap(err, msgInternal), map[string]interface{}{
					"requestID": reqID,
					"method":    ctx.Request().Method,
					"path":      ctx.Request().URL.Path,
				})

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, Response{Code: code, Message: message, Data: data})
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func invalidField(field, msg string) error {
	return core.NewValidationError(nil, core.FieldError{Field: field, Error: msg})
}
