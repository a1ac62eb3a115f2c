package protocol

import "fmt"

// 宿主通道错误码
const (
	ErrCodeSuccess        = 0
	ErrCodeInternalError  = 1
	ErrCodeInvalidRequest = 2

	ErrCodeAuthFailed   = 1001
	ErrCodeTokenExpired = 1002
)

// ErrCodeMessage 错误码对应的消息
var ErrCodeMessage = map[int]string{
	ErrCodeSuccess:        "success",
	ErrCodeInternalError:  "internal_error",
	ErrCodeInvalidRequest: "invalid_request",
	ErrCodeAuthFailed:     "auth_failed",
	ErrCodeTokenExpired:   "token_expired",
}

// Discord RPC 错误码（ERROR 事件）
const (
	RPCErrUnknown            = 1000
	RPCErrInvalidPayload     = 4000
	RPCErrInvalidCommand     = 4002
	RPCErrInvalidEvent       = 4004
	RPCErrInvalidClientID    = 4007
	RPCErrInvalidOrigin      = 4008
	RPCErrInvalidToken       = 4009
	RPCErrInvalidUser        = 4010
	RPCErrOAuth2Error        = 5000
	RPCErrSelectChannelTimed = 5001
)

// Discord RPC 关闭码（CLOSE 帧）
const (
	CloseNormal          = 1000
	CloseUnsupported     = 1003
	CloseAbnormal        = 1006
	CloseInvalidClientID = 4000
	CloseInvalidOrigin   = 4001
	CloseRateLimited     = 4002
	CloseTokenRevoked    = 4003
	CloseInvalidVersion  = 4004
	CloseInvalidEncoding = 4005
)

// Error Discord 返回的 RPC 错误
type Error struct {
	Code    int
	Message string
}

// NewError 从 ErrorData 构造错误
func NewError(d ErrorData) *Error {
	return &Error{Code: d.Code, Message: d.Message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Kind 错误类别，用于通知文案 "<kind>: <message>"
func (e *Error) Kind() string {
	return "RPCError"
}
