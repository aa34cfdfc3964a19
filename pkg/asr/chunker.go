package asr

// window is a [start, end) sample range into an audio buffer.
type window struct {
	start, end int
}

// computeWindows splits total samples into successive windowLen-sample
// chunks advancing by stride, per spec §4.9: stride = L - O, so successive
// chunks overlap by O samples. The final tail, if shorter than minTail
// samples, is absorbed into the previous window instead of emitted alone.
func computeWindows(total, windowLen, stride, minTail int) []window {
	if total <= 0 {
		return nil
	}
	if total <= windowLen {
		return []window{{0, total}}
	}

	var windows []window
	start := 0
	for {
		end := start + windowLen
		if end >= total {
			tail := total - start
			if len(windows) > 0 && tail < minTail {
				windows[len(windows)-1].end = total
			} else {
				windows = append(windows, window{start, total})
			}
			break
		}
		windows = append(windows, window{start, end})
		start += stride
	}
	return windows
}
