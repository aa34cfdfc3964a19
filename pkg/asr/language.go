package asr

// DetectLanguage applies the shared heuristic used across engines: any
// Hiragana/Katakana codepoint marks the text Japanese; otherwise compare CJK
// Unified Ideograph count against ASCII letter count.
func DetectLanguage(text string) string {
	var cjk, kana, ascii int
	for _, r := range text {
		switch {
		case r >= 0x3040 && r <= 0x309F, r >= 0x30A0 && r <= 0x30FF:
			kana++
		case r >= 0x4E00 && r <= 0x9FFF:
			cjk++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			ascii++
		}
	}

	switch {
	case kana > 0:
		return "ja"
	case cjk > ascii && cjk > 0:
		return "zh"
	case ascii > 0:
		return "en"
	case cjk > 0:
		return "zh"
	default:
		return "unknown"
	}
}
