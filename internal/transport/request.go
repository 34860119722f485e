package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/surjbayarea/actionsync/pkg/errors"
	"github.com/surjbayarea/actionsync/pkg/logging"
)

// DecodeResponse decodes a JSON response into the target structure.
// Any status outside the 2xx range becomes an APIError carrying the
// response body as the message.
func DecodeResponse(resp *http.Response, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Msg("failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &errors.APIError{
			Endpoint:   resp.Request.URL.Path,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	if target == nil || len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}

	return nil
}

// Discard drains and closes a response body, converting non-2xx statuses
// into APIErrors. Used for mutation endpoints whose payload we ignore.
func Discard(resp *http.Response) error {
	return DecodeResponse(resp, nil)
}
