package anthropic

// CachedSystem returns text as a single system block with a 5 minute
// cache breakpoint, so repeated extractions over a folder reuse the prompt.
func CachedSystem(text string) []SystemBlock {
	return []SystemBlock{{Text: text, CacheControl: &CacheControl{TTL: "5m"}}}
}
