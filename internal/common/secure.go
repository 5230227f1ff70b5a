package common

const maskedValue = "******"

// MaskValue hides a secret unless the caller explicitly asked to show it.
func MaskValue(value string, show bool) string {
	if show {
		return value
	}
	return maskedValue
}
