package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CodeSuccess is the envelope code of every successful response.
const CodeSuccess = http.StatusOK

// Response is the envelope every endpoint answers with.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func ok(ctx echo.Context, data interface{}) error {
	return ctx.JSON(http.StatusOK, Response{Code: CodeSuccess, Message: "success", Data: data})
}
