package emit

// Markdown returns the source bytes unchanged.
func Markdown(content string) []byte {
	return []byte(content)
}
