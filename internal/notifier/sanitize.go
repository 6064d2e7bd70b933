package notifier

import (
	"errors"
	"fmt"
	"net/url"
)

// sanitizeURLError strips the request URL from transport errors. Webhook
// URLs carry embedded tokens, so they must never leak into logs or
// upstream error messages.
func sanitizeURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request failed: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
