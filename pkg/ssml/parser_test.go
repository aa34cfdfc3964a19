package ssml

import (
	"reflect"
	"testing"
)

func textSeg(text string, speed float64) Segment {
	return Segment{Kind: KindText, Text: text, Speed: speed}
}

func silenceSeg(ms uint32) Segment {
	return Segment{Kind: KindSilence, DurationMs: ms}
}

func TestIsSSML(t *testing.T) {
	cases := map[string]bool{
		"<speak>hello</speak>":              true,
		"  <speak>hello</speak>  ":          true,
		`<speak xml:lang="zh">hello</speak>`: true,
		"hello":                              false,
		"hello <speak>":                      false,
		"":                                   false,
	}
	for input, want := range cases {
		if got := IsSSML(input); got != want {
			t.Errorf("IsSSML(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestParsePlainText(t *testing.T) {
	got, err := Parse("<speak>hello world</speak>")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Segment{textSeg("hello world", 1.0)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseScenarioS4(t *testing.T) {
	input := `<speak>今天天气真不错。<break time="500ms"/><prosody rate="fast">我们快点走吧！</prosody><break strength="strong"/>再见。</speak>`
	got, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Segment{
		textSeg("今天天气真不错。", 1.0),
		silenceSeg(500),
		textSeg("我们快点走吧！", 1.25),
		silenceSeg(750),
		textSeg("再见。", 1.0),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseBreakTimeSeconds(t *testing.T) {
	got, err := Parse(`<speak>hello<break time="1.5s"/>world</speak>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Segment{textSeg("hello", 1.0), silenceSeg(1500), textSeg("world", 1.0)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseBreakStrength(t *testing.T) {
	got, err := Parse(`<speak>hello<break strength="strong"/>world</speak>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Segment{textSeg("hello", 1.0), silenceSeg(750), textSeg("world", 1.0)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseBreakStrengthNoneEmitsNoSilence(t *testing.T) {
	got, err := Parse(`<speak>hello<break strength="none"/>world</speak>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Segment{textSeg("hello world", 1.0)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseBreakCapsAt10Seconds(t *testing.T) {
	got, err := Parse(`<speak>a<break time="30000ms"/>b</speak>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got[1] != silenceSeg(10000) {
		t.Fatalf("expected capped silence, got %+v", got[1])
	}
}

func TestParseProsodyRateNamedAndRestore(t *testing.T) {
	got, err := Parse(`<speak>normal<prosody rate="fast">fast</prosody>normal again</speak>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Segment{
		textSeg("normal", 1.0),
		textSeg("fast", 1.25),
		textSeg("normal again", 1.0),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseProsodyRatePercentage(t *testing.T) {
	got, err := Parse(`<speak><prosody rate="80%">slow</prosody></speak>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Segment{textSeg("slow", 0.8)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseProsodyRateClampsOutOfRange(t *testing.T) {
	got, err := Parse(`<speak><prosody rate="900%">fast</prosody></speak>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Segment{textSeg("fast", 4.0)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseNestedProsodyStackBalances(t *testing.T) {
	got, err := Parse(`<speak><prosody rate="fast"><prosody rate="slow">slower</prosody>back to fast</prosody>done</speak>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Segment{
		textSeg("slower", 0.75),
		textSeg("back to fast", 1.25),
		textSeg("done", 1.0),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseParagraphBoundary(t *testing.T) {
	got, err := Parse(`<speak><p>First paragraph.</p><p>Second paragraph.</p></speak>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Segment{
		textSeg("First paragraph.", 1.0),
		silenceSeg(750),
		textSeg("Second paragraph.", 1.0),
		silenceSeg(750),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseSentenceBoundaryMerges(t *testing.T) {
	got, err := Parse(`<speak><s>First.</s><s>Second.</s></speak>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Segment{textSeg("First. Second.", 1.0)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseSentenceBoundaryWithBreakStaysDistinct(t *testing.T) {
	got, err := Parse(`<speak><s>First.</s><break time="300ms"/><s>Second.</s></speak>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Segment{textSeg("First.", 1.0), silenceSeg(300), textSeg("Second.", 1.0)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseUnknownTagsPreserveText(t *testing.T) {
	got, err := Parse(`<speak><emphasis>important</emphasis> text</speak>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Segment{textSeg("important text", 1.0)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseMissingClosingSpeakTolerated(t *testing.T) {
	got, err := Parse("<speak>hello world")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Segment{textSeg("hello world", 1.0)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseMissingOpeningSpeakErrors(t *testing.T) {
	if _, err := Parse("hello world"); err == nil {
		t.Fatal("expected error for missing <speak> wrapper")
	}
}

func TestStripXMLTags(t *testing.T) {
	got := StripXMLTags("<speak>hello <b>world</b></speak>")
	if got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestParseOrFallbackStripsTagsOnError(t *testing.T) {
	got := ParseOrFallback("hello <b>world</b>", &NoOpLogger{})
	want := []Segment{textSeg("hello world", 1.0)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseOrFallbackPassesThroughSuccessfulParse(t *testing.T) {
	got := ParseOrFallback(`<speak>hi<break time="200ms"/>there</speak>`, &NoOpLogger{})
	want := []Segment{textSeg("hi", 1.0), silenceSeg(200), textSeg("there", 1.0)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
