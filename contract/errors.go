package contract

import (
	"fmt"
)

// BadLengthError reports input whose byte length does not match what the
// construction path requires. Len is the length that was actually seen.
type BadLengthError struct {
	Len int
}

func (e *BadLengthError) Error() string {
	return fmt.Sprintf("invalid length %d", e.Len)
}

// BadTypeError reports a serialized type tag that matches none of the known
// contract types. Tag holds the offending bytes verbatim.
type BadTypeError struct {
	Tag []byte
}

func (e *BadTypeError) Error() string {
	return fmt.Sprintf("unrecognized contract type tag %q", e.Tag)
}

// WrongNetworkError reports an address or key that decoded cleanly but
// belongs to a different network than the one the tool is configured for.
type WrongNetworkError struct {
	Got  string
	Want string
}

func (e *WrongNetworkError) Error() string {
	return fmt.Sprintf("wrong network: got %s, expected %s", e.Got, e.Want)
}
