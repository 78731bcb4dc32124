// Package errs defines the single sum-type error taxonomy shared by every
// MATHLDBT codec component. All fallible codec paths return one of the
// sentinel errors declared here, optionally wrapped with column-index or
// byte-offset context via fmt.Errorf("%w: ...", errs.ErrXxx).
package errs

import "errors"

// Sentinel errors, one per taxonomy kind. Decoders and encoders never return
// a bare error outside this set; callers can classify a failure with
// errors.Is against these values regardless of the attached context.
var (
	// ErrInvalidBatch signals a producer-side precondition violation caught
	// before any header bytes are emitted.
	ErrInvalidBatch = errors.New("invalid batch")

	// ErrBadMagic signals the 8-byte magic prefix did not read "MATHLDBT".
	ErrBadMagic = errors.New("bad magic")

	// ErrUnsupportedVersion signals a version field other than the one this
	// codec implements.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrMalformed signals any structural violation detected while parsing
	// an envelope: bad offsets, non-zero reserved bits, encoding/type
	// mismatches, oversized varints, and similar.
	ErrMalformed = errors.New("malformed envelope")

	// ErrTruncated signals that a declared length exceeds the bytes
	// remaining in the input.
	ErrTruncated = errors.New("truncated envelope")

	// ErrBadSchema signals an empty, duplicated, or non-UTF-8 field name.
	ErrBadSchema = errors.New("bad schema")

	// ErrBadUtf8 signals invalid UTF-8 in a Utf8 column's data buffer.
	ErrBadUtf8 = errors.New("invalid utf-8")

	// ErrUnsupportedEncoding signals an unknown logical_type or encoding_id
	// byte on the wire.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")

	// ErrDictTooLarge signals a DictUtf8 dictionary whose index width would
	// overflow a u32.
	ErrDictTooLarge = errors.New("dictionary too large")

	// ErrDecompressTooLarge signals that decompression was aborted before
	// exceeding the caller-supplied max_uncompressed_len bound.
	ErrDecompressTooLarge = errors.New("decompressed payload too large")

	// ErrFeatureDisabled signals a compression algorithm that was not built
	// into this binary.
	ErrFeatureDisabled = errors.New("feature disabled")
)
