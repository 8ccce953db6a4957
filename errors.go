package fastprop

import "github.com/Konsultn-Engineering/fastprop/schema"

var (
	ErrPropertyNotFound      = schema.ErrPropertyNotFound
	ErrPropertyNotAccessible = schema.ErrPropertyNotAccessible
	ErrPropertyNotReadable   = schema.ErrPropertyNotReadable
	ErrPropertyNotWritable   = schema.ErrPropertyNotWritable
	ErrTypeMismatch          = schema.ErrTypeMismatch
	ErrUnsupportedType       = schema.ErrUnsupportedType
)

// PropertyError is the error type returned by every operation. Use
// errors.Is with the sentinels above to classify it.
type PropertyError = schema.PropertyError
