package extractor

import "errors"

var (
	// ErrParse means the file could not be parsed; no records are produced.
	ErrParse = errors.New("failed to parse source")

	// ErrMalformedCall means a logging call has starred arguments, "**"
	// arguments or too few arguments to locate the message.
	ErrMalformedCall = errors.New("malformed logging call")

	// ErrUnresolvedLevel means the level argument of a generic log call
	// could not be inferred.
	ErrUnresolvedLevel = errors.New("unable to resolve log level")

	// ErrUnknownLevel means the level argument resolved to a value that is
	// not a known severity.
	ErrUnknownLevel = errors.New("unknown log level")
)
