package errors

import "errors"

// Error kinds specific to the trust-schema engine: pattern compilation and
// matching, schema loading and evaluation, signature and replay checking,
// and chain-planning. Each has an Xf-style formatted constructor following
// the same formatError idiom as the generic sentinels above, so callers can
// both read a useful message and `errors.Is` against the kind.
var (
	ErrParse          = errors.New("pattern parse error")
	ErrLoad           = errors.New("schema load error")
	ErrNoRule         = errors.New("no rule matches name")
	ErrNoChain        = errors.New("no signing chain satisfies rule")
	ErrPolicyRejected = errors.New("signature policy rejected")
	ErrBadSignature   = errors.New("signature verification failed")
	ErrReplay         = errors.New("replay check failed")
	ErrMaxSteps       = errors.New("validation exceeded step limit")
	ErrDecode         = errors.New("wire decode error")
	ErrExpandRange    = errors.New("back-reference out of range")
	ErrInferMismatch  = errors.New("inferred pattern does not match example")
)

func Parsef(format string, args ...interface{}) error          { return formatError(ErrParse, format, args...) }
func Loadf(format string, args ...interface{}) error            { return formatError(ErrLoad, format, args...) }
func NoRulef(format string, args ...interface{}) error          { return formatError(ErrNoRule, format, args...) }
func NoChainf(format string, args ...interface{}) error         { return formatError(ErrNoChain, format, args...) }
func PolicyRejectedf(format string, args ...interface{}) error  { return formatError(ErrPolicyRejected, format, args...) }
func BadSignaturef(format string, args ...interface{}) error    { return formatError(ErrBadSignature, format, args...) }
func Replayf(format string, args ...interface{}) error          { return formatError(ErrReplay, format, args...) }
func MaxStepsf(format string, args ...interface{}) error        { return formatError(ErrMaxSteps, format, args...) }
func Decodef(format string, args ...interface{}) error          { return formatError(ErrDecode, format, args...) }
func ExpandRangef(format string, args ...interface{}) error     { return formatError(ErrExpandRange, format, args...) }
func InferMismatchf(format string, args ...interface{}) error   { return formatError(ErrInferMismatch, format, args...) }
