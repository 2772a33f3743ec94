package chat

// ResolveNextPrompt picks the next prompt source. Voice text wins over typed
// text; ok is false when neither carries input yet.
func ResolveNextPrompt(voiceText, typedText string) (prompt string, ok bool) {
	if voiceText != "" {
		return voiceText, true
	}
	if typedText != "" {
		return typedText, true
	}
	return "", false
}
