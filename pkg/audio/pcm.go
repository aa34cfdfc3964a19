package audio

// PCM16ToFloat32 decodes little-endian signed 16-bit PCM bytes (the device
// callback's native format) into the float32 samples Ring/Player operate on.
func PCM16ToFloat32(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		sample := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		out[i] = float32(sample) / 32768.0
	}
	return out
}

// Float32ToPCM16 encodes float32 samples in [-1, 1] back into little-endian
// signed 16-bit PCM bytes, clamping out-of-range values rather than
// wrapping.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}
