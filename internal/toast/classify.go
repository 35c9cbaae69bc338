// Package toast reads and classifies transient status notifications.
package toast

import "strings"

// Kind is the classification of a toast.
type Kind int

const (
	KindUnknown   Kind = iota // neither success nor error markers
	KindSuccess               // success markers only
	KindError                 // error markers only
	KindAmbiguous             // both
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	case KindAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

var (
	successClassMarkers   = []string{"success", "green"}
	successMessageMarkers = []string{"success"} // also matches successful / successfully
	errorClassMarkers     = []string{"error", "red"}
	errorMessageMarkers   = []string{"error", "failed", "incorrect", "invalid", "not found"}
)

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// IsSuccess reports whether a toast with this text and class attribute
// signals success. Class markers are matched case-sensitively, message
// markers case-insensitively. An empty message is never a success, whatever
// its class says.
func IsSuccess(message, class string) bool {
	if message == "" {
		return false
	}
	return containsAny(class, successClassMarkers) ||
		containsAny(strings.ToLower(message), successMessageMarkers)
}

// IsError reports whether a toast signals an error. It is independent of
// IsSuccess; both may hold for the same toast.
func IsError(message, class string) bool {
	if message == "" {
		return false
	}
	return containsAny(class, errorClassMarkers) ||
		containsAny(strings.ToLower(message), errorMessageMarkers)
}

// Classify combines IsSuccess and IsError.
func Classify(message, class string) Kind {
	success, failure := IsSuccess(message, class), IsError(message, class)
	switch {
	case success && failure:
		return KindAmbiguous
	case success:
		return KindSuccess
	case failure:
		return KindError
	default:
		return KindUnknown
	}
}
