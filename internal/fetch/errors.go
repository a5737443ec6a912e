package fetch

import (
	"errors"
	"fmt"
	"net/http"

	perrors "github.com/jmgilman/go/errors"

	"github.com/econfetch/econfetch/internal/logging"
)

// ErrInvalidRequest 表示请求参数无法构成一次下载（URL 为空、策略未知等）。
var ErrInvalidRequest = errors.New("invalid fetch request")

// TransferError 描述正文下载失败：网络错误、非 2xx 状态或写盘中断。
// 这是唯一会终止 FetchIfStale 的错误类型。
type TransferError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: status %d", logging.RedactURL(e.URL), e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", logging.RedactURL(e.URL), e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// transferFailure 将 TransferError 包装为带错误码和上下文的平台错误，便于 HTTP 层输出 JSON。
func transferFailure(rawURL string, status int, err error) error {
	te := &TransferError{URL: rawURL, StatusCode: status, Err: err}
	wrapped := perrors.Wrap(te, transferCode(status), "transfer failed")
	return perrors.WithContextMap(wrapped, map[string]interface{}{
		"url":    logging.RedactURL(rawURL),
		"status": status,
	})
}

func transferCode(status int) perrors.ErrorCode {
	switch {
	case status == 0:
		return perrors.CodeNetwork
	case status == http.StatusNotFound:
		return perrors.CodeNotFound
	case status == http.StatusUnauthorized:
		return perrors.CodeUnauthorized
	case status == http.StatusForbidden:
		return perrors.CodeForbidden
	case status == http.StatusTooManyRequests:
		return perrors.CodeRateLimit
	default:
		return perrors.CodeUnavailable
	}
}

func invalidRequest(format string, args ...interface{}) error {
	return perrors.Wrap(fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...)),
		perrors.CodeInvalidInput, "invalid fetch request")
}
