package cryptox

// MaskPrefix replaces the hidden part of a masked secret.
const MaskPrefix = "****"

// DefaultVisibleSuffix is the number of trailing characters Mask reveals.
const DefaultVisibleSuffix = 6

// Mask renders a secret for display: the prefix marker followed by the last
// visible characters. Secrets no longer than visible are appended whole.
//
//	Mask("abcdefghij", 6) == "****efghij"
//	Mask("abc", 6)        == "****abc"
func Mask(secret string, visible int) string {
	if visible <= 0 {
		return MaskPrefix
	}

	runes := []rune(secret)
	if len(runes) <= visible {
		return MaskPrefix + secret
	}

	return MaskPrefix + string(runes[len(runes)-visible:])
}
