package state

import "testing"

func TestAudioQueueDropsOldestOnOverflow(t *testing.T) {
	q := NewAudioQueue(2)
	q.Push(Chunk{SpeakerID: strPtr("a")})
	q.Push(Chunk{SpeakerID: strPtr("b")})
	q.Push(Chunk{SpeakerID: strPtr("c")})

	chunks := q.Drain()
	if len(chunks) != 2 {
		t.Fatalf("expected queue capped at 2, got %d", len(chunks))
	}
	if *chunks[0].SpeakerID != "b" || *chunks[1].SpeakerID != "c" {
		t.Fatalf("expected oldest chunk dropped, got %+v", chunks)
	}
}

func TestAudioQueueDrainNPartial(t *testing.T) {
	q := NewAudioQueue(10)
	for i := 0; i < 5; i++ {
		q.Push(Chunk{SampleRate: i})
	}
	first := q.DrainN(2)
	if len(first) != 2 || first[0].SampleRate != 0 || first[1].SampleRate != 1 {
		t.Fatalf("unexpected partial drain %+v", first)
	}
	if q.Len() != 3 {
		t.Fatalf("expected 3 remaining, got %d", q.Len())
	}
	rest := q.DrainN(100)
	if len(rest) != 3 {
		t.Fatalf("expected remaining drain to return all leftovers, got %d", len(rest))
	}
	if q.HasAudio() {
		t.Fatal("expected queue empty after draining everything")
	}
}

func TestAudioQueueClear(t *testing.T) {
	q := NewAudioQueue(0)
	q.Push(Chunk{})
	q.Push(Chunk{})
	q.Clear()
	if q.HasAudio() {
		t.Fatal("expected queue empty after Clear")
	}
	if q.Len() != 0 {
		t.Fatalf("expected len 0 after Clear, got %d", q.Len())
	}
}
