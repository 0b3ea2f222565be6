package wire

// Base64 codec for opaque binary payloads embedded in the request/response
// envelopes. Encode is standard base64 with '=' padding. Decode is
// deliberately lenient: bytes outside the alphabet are skipped (so an encoded
// payload can be decoded straight out of its surrounding envelope text) and
// output is clamped to the destination capacity. Decode never rejects
// malformed input, it only guarantees it will not overrun the destination.

const encodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// Encode encodes data as base64. Output length is always ceil(len(data)/3)*4.
func Encode(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	out := make([]byte, ((len(data)+2)/3)*4)
	j := 0
	for i := 0; i < len(data); i += 3 {
		b := uint32(data[i]) << 16
		if i+1 < len(data) {
			b |= uint32(data[i+1]) << 8
		}
		if i+2 < len(data) {
			b |= uint32(data[i+2])
		}
		out[j] = encodeChars[(b>>18)&0x3f]
		out[j+1] = encodeChars[(b>>12)&0x3f]
		if i+1 < len(data) {
			out[j+2] = encodeChars[(b>>6)&0x3f]
		} else {
			out[j+2] = '='
		}
		if i+2 < len(data) {
			out[j+3] = encodeChars[b&0x3f]
		} else {
			out[j+3] = '='
		}
		j += 4
	}
	return string(out)
}

// Decode decodes base64 input into dst and returns the number of bytes
// written. At most len(dst) bytes are written. A return of 0 means no
// payload could be decoded.
func Decode(in string, dst []byte) int {
	j := 0
	var val uint32
	quantum := 0
	pad := 0
	for i := 0; i < len(in) && j < len(dst); i++ {
		c := in[i]
		var idx uint32
		switch {
		case c >= 'A' && c <= 'Z':
			idx = uint32(c - 'A')
		case c >= 'a' && c <= 'z':
			idx = uint32(c-'a') + 26
		case c >= '0' && c <= '9':
			idx = uint32(c-'0') + 52
		case c == '+':
			idx = 62
		case c == '/':
			idx = 63
		case c == '=':
			pad++
			val <<= 6
			quantum++
			if quantum == 4 {
				j = flushQuantum(val, pad, dst, j)
				val = 0
				quantum = 0
			}
			continue
		default:
			// Not part of the alphabet (whitespace, quotes, framing) - skip
			continue
		}
		val = val<<6 | idx
		quantum++
		if quantum == 4 {
			j = flushQuantum(val, pad, dst, j)
			val = 0
			quantum = 0
		}
	}
	return j
}

func flushQuantum(val uint32, pad int, dst []byte, j int) int {
	if j < len(dst) {
		dst[j] = byte(val >> 16)
		j++
	}
	if j < len(dst) && pad < 2 {
		dst[j] = byte(val >> 8)
		j++
	}
	if j < len(dst) && pad < 1 {
		dst[j] = byte(val)
		j++
	}
	return j
}
