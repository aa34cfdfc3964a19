// Package ssml is a practical-subset SSML parser for TTS front-ends: it
// turns <speak> markup into a flat ordered sequence of Text/Silence
// segments ready for synthesis. Grounded directly on the Rust
// implementation in dora-gpt-sovits-mlx/src/ssml.rs, reworked as the
// tag-stack-plus-text-accumulator state machine idiomatic in Go rather than
// a recursive-descent tree parser.
package ssml

import (
	"fmt"
	"strconv"
	"strings"
)

// strengthMs maps the <break strength="…"> attribute to milliseconds.
var strengthMs = map[string]uint32{
	"none":     0,
	"x-weak":   100,
	"weak":     200,
	"medium":   400,
	"strong":   750,
	"x-strong": 1200,
}

// namedRate maps <prosody rate="…"> named values to a speed multiplier.
var namedRate = map[string]float64{
	"x-slow": 0.5,
	"slow":   0.75,
	"medium": 1.0,
	"fast":   1.25,
	"x-fast": 1.75,
}

const maxSilenceMs = 10000

// IsSSML reports whether text, once trimmed, opens with <speak> or <speak …>.
func IsSSML(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "<speak>") || strings.HasPrefix(trimmed, "<speak ")
}

// Parse parses SSML input into a flat segment sequence, logging unknown
// tags at debug level via a no-op logger.
func Parse(input string) ([]Segment, error) {
	return ParseWithLogger(input, &NoOpLogger{})
}

// ParseWithLogger parses SSML input, routing unknown-tag notices through logger.
func ParseWithLogger(input string, logger Logger) ([]Segment, error) {
	trimmed := strings.TrimSpace(input)

	inner, err := stripSpeakWrapper(trimmed)
	if err != nil {
		return nil, err
	}

	p := &parser{runes: []rune(inner), speedStack: []float64{1.0}, logger: logger}
	p.run()

	return mergeAdjacentText(p.segments), nil
}

// ParseOrFallback parses input and, on any error, falls back to stripping
// every XML tag and returning the remaining text as one plain-text segment
// at speed 1.0 — the "catastrophic failure" behavior named in spec §4.10.
func ParseOrFallback(input string, logger Logger) []Segment {
	segments, err := ParseWithLogger(input, logger)
	if err == nil {
		return segments
	}
	logger.Warn("ssml: parse failed, falling back to stripped text", "error", err)
	text := strings.TrimSpace(StripXMLTags(input))
	if text == "" {
		return nil
	}
	return []Segment{{Kind: KindText, Text: text, Speed: 1.0}}
}

// StripXMLTags removes every <...> span, returning the remaining text
// trimmed of surrounding whitespace.
func StripXMLTags(text string) string {
	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func stripSpeakWrapper(text string) (string, error) {
	start := strings.IndexByte(text, '>')
	if start < 0 || !IsSSML(text) {
		return "", fmt.Errorf("ssml: missing <speak> opening tag")
	}
	inner := text[start+1:]
	if end := strings.LastIndex(inner, "</speak>"); end >= 0 {
		return strings.TrimSpace(inner[:end]), nil
	}
	return strings.TrimSpace(inner), nil
}

type tag struct {
	name        string
	closing     bool
	selfClosing bool
	attrs       map[string]string
}

type parser struct {
	runes      []rune
	pos        int
	segments   []Segment
	speedStack []float64
	current    strings.Builder
	logger     Logger
}

func (p *parser) run() {
	for p.pos < len(p.runes) {
		if p.runes[p.pos] == '<' {
			p.flushText()
			t, ok := p.parseTag()
			if !ok {
				continue
			}
			p.handleTag(t)
		} else {
			p.current.WriteRune(p.runes[p.pos])
			p.pos++
		}
	}
	p.flushText()
}

func (p *parser) flushText() {
	text := strings.TrimSpace(p.current.String())
	p.current.Reset()
	if text == "" {
		return
	}
	p.segments = append(p.segments, Segment{
		Kind:  KindText,
		Text:  text,
		Speed: p.speedStack[len(p.speedStack)-1],
	})
}

// parseTag consumes a <...> span starting at p.pos (which must point at
// '<') and returns the parsed tag. ok is false for a malformed/unterminated
// tag, which is silently skipped rather than aborting the whole parse.
func (p *parser) parseTag() (tag, bool) {
	p.pos++ // consume '<'
	start := p.pos
	depth := 1
	for p.pos < len(p.runes) {
		switch p.runes[p.pos] {
		case '>':
			depth--
			if depth == 0 {
				raw := string(p.runes[start:p.pos])
				p.pos++ // consume '>'
				return parseTagBody(raw), true
			}
		case '<':
			depth++
		}
		p.pos++
	}
	return tag{}, false
}

func parseTagBody(raw string) tag {
	closing := strings.HasPrefix(raw, "/")
	selfClosing := strings.HasSuffix(raw, "/")
	content := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "/"), "/"))

	name := content
	attrStr := ""
	if idx := strings.IndexFunc(content, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }); idx >= 0 {
		name = content[:idx]
		attrStr = content[idx+1:]
	}

	return tag{
		name:        strings.ToLower(name),
		closing:     closing,
		selfClosing: selfClosing,
		attrs:       parseAttrs(attrStr),
	}
}

func parseAttrs(s string) map[string]string {
	attrs := map[string]string{}
	remaining := strings.TrimSpace(s)

	for remaining != "" {
		eq := strings.IndexByte(remaining, '=')
		if eq < 0 {
			break
		}
		key := strings.ToLower(strings.TrimSpace(remaining[:eq]))
		remaining = strings.TrimSpace(remaining[eq+1:])

		var value string
		switch {
		case strings.HasPrefix(remaining, `"`):
			remaining = remaining[1:]
			end := strings.IndexByte(remaining, '"')
			if end < 0 {
				end = len(remaining)
			}
			value = remaining[:end]
			remaining = advancePast(remaining, end)
		case strings.HasPrefix(remaining, "'"):
			remaining = remaining[1:]
			end := strings.IndexByte(remaining, '\'')
			if end < 0 {
				end = len(remaining)
			}
			value = remaining[:end]
			remaining = advancePast(remaining, end)
		default:
			end := strings.IndexFunc(remaining, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' })
			if end < 0 {
				end = len(remaining)
			}
			value = remaining[:end]
			remaining = strings.TrimSpace(remaining[end:])
		}
		attrs[key] = value
	}
	return attrs
}

func advancePast(s string, end int) string {
	if end < len(s) {
		return strings.TrimSpace(s[end+1:])
	}
	return ""
}

func (p *parser) handleTag(t tag) {
	switch t.name {
	case "break":
		var ms uint32
		if timeStr, ok := t.attrs["time"]; ok {
			if parsed, ok := parseTimeMs(timeStr); ok {
				ms = parsed
			} else {
				ms = 400
			}
		} else if strength, ok := t.attrs["strength"]; ok {
			ms = strengthToMs(strength)
		} else {
			ms = 400
		}
		if ms > maxSilenceMs {
			ms = maxSilenceMs
		}
		if ms > 0 {
			p.segments = append(p.segments, Segment{Kind: KindSilence, DurationMs: ms})
		}

	case "prosody":
		if t.closing {
			if len(p.speedStack) > 1 {
				p.speedStack = p.speedStack[:len(p.speedStack)-1]
			}
			return
		}
		rate := p.speedStack[len(p.speedStack)-1]
		if r, ok := t.attrs["rate"]; ok {
			rate = parseRate(r)
		}
		p.speedStack = append(p.speedStack, rate)
		if t.selfClosing {
			p.speedStack = p.speedStack[:len(p.speedStack)-1]
		}

	case "s":
		// Sentence boundary: pure split point, flushText already ran.

	case "p":
		if t.closing {
			p.segments = append(p.segments, Segment{Kind: KindSilence, DurationMs: 750})
		}

	case "speak":
		// Nested <speak>: ignore.

	default:
		if !t.closing {
			p.logger.Debug("ssml: ignoring unsupported tag", "tag", t.name)
		}
	}
}

func strengthToMs(strength string) uint32 {
	if ms, ok := strengthMs[strength]; ok {
		return ms
	}
	return 400
}

func parseRate(rate string) float64 {
	if v, ok := namedRate[rate]; ok {
		return v
	}
	if pct, found := strings.CutSuffix(rate, "%"); found {
		if v, err := strconv.ParseFloat(pct, 64); err == nil {
			return clamp(v/100.0, 0.25, 4.0)
		}
	}
	if v, err := strconv.ParseFloat(rate, 64); err == nil {
		return clamp(v, 0.25, 4.0)
	}
	return 1.0
}

func parseTimeMs(s string) (uint32, bool) {
	s = strings.TrimSpace(s)
	if ms, found := strings.CutSuffix(s, "ms"); found {
		v, err := strconv.ParseUint(strings.TrimSpace(ms), 10, 32)
		if err != nil {
			return 0, false
		}
		return uint32(v), true
	}
	if secs, found := strings.CutSuffix(s, "s"); found {
		v, err := strconv.ParseFloat(strings.TrimSpace(secs), 64)
		if err != nil {
			return 0, false
		}
		return uint32(v * 1000.0), true
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// mergeAdjacentText merges consecutive Text segments sharing the same speed
// into one, joined by a space — minimizing downstream synthesis calls.
func mergeAdjacentText(segments []Segment) []Segment {
	var merged []Segment
	for _, seg := range segments {
		if seg.Kind == KindText && len(merged) > 0 {
			last := &merged[len(merged)-1]
			if last.Kind == KindText && last.Speed == seg.Speed {
				last.Text = last.Text + " " + seg.Text
				continue
			}
		}
		merged = append(merged, seg)
	}
	return merged
}
