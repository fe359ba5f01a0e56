package core

import "errors"

var (
	// ErrExtractionFailed is returned when the intent reply cannot be decoded
	ErrExtractionFailed = errors.New("intent extraction failed")
	// ErrCompositionFailed is returned when the body reply cannot be decoded
	ErrCompositionFailed = errors.New("body composition failed")
	// ErrMissingRecipient means no address was found, even with the regex fallback
	ErrMissingRecipient = errors.New("no recipient email found in the prompt")
	// ErrRecipientNotAllowed means the recipient domain failed the policy check
	ErrRecipientNotAllowed = errors.New("recipient domain is not allowed")
	// ErrAttachmentNotFound aborts message construction
	ErrAttachmentNotFound = errors.New("attachment not found")
	// ErrMissingRaw is returned when a message reaches delivery unbuilt
	ErrMissingRaw = errors.New("message has no raw payload")
	// ErrRateLimited marks transient provider rejections that may be retried
	ErrRateLimited = errors.New("rate limited")
	// ErrDeliveryFailed wraps every other provider error
	ErrDeliveryFailed = errors.New("delivery failed")
	// ErrDraftUnsupported is returned by transports that cannot store drafts
	ErrDraftUnsupported = errors.New("drafts are not supported by this transport")
)
