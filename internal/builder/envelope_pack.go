package builder

// element is one push of the envelope wire format: either a script-number
// integer marker or a raw data chunk (mime type / content type / payload
// bytes).
type element struct {
	isInt bool
	n     int64
	data  []byte
}

func intElem(v int64) element  { return element{isInt: true, n: v} }
func dataElem(d []byte) element { return element{data: d} }

// sentinelValue is the decimal integer internal/envelope requires to open a
// genesis hop.
const sentinelValue = 6582895

// splitChunks divides payload into parts of at most maxLen bytes each. A
// zero-length payload still yields a single empty chunk, so an empty
// inscription carries exactly one (remaining=0, "") pair.
func splitChunks(payload []byte, maxLen int) [][]byte {
	if len(payload) == 0 {
		return [][]byte{{}}
	}
	var chunks [][]byte
	for len(payload) > 0 {
		n := maxLen
		if n > len(payload) {
			n = len(payload)
		}
		chunks = append(chunks, payload[:n])
		payload = payload[n:]
	}
	return chunks
}

// buildEnvelopeElements lays out the full sequence of pushes internal/envelope
// expects: the genesis sentinel, an initial remaining-chunks marker, the
// content type, then one (remainingAfterThis, chunk) pair per chunk,
// counting down to zero on the final chunk.
func buildEnvelopeElements(contentType string, chunks [][]byte) []element {
	elements := make([]element, 0, 3+2*len(chunks))
	elements = append(elements,
		intElem(sentinelValue),
		intElem(int64(len(chunks))),
		dataElem([]byte(contentType)),
	)
	for i, chunk := range chunks {
		remaining := len(chunks) - 1 - i
		elements = append(elements, intElem(int64(remaining)), dataElem(chunk))
	}
	return elements
}

// packPartials groups elements into partial envelopes, each serializing to
// at most maxLen bytes. The leading (sentinel, numParts, contentType) triple
// is always packed as the first unit of the first partial; every chunk pair
// thereafter is its own unit that either joins the current partial or, if
// doing so would overflow it, starts the next one.
func packPartials(elements []element, maxLen int) [][]element {
	units := unitize(elements)

	var partials [][]element
	var current []element
	currentSize := 0

	flush := func() {
		if len(current) > 0 {
			partials = append(partials, current)
			current = nil
			currentSize = 0
		}
	}

	for _, unit := range units {
		unitSize := 0
		for _, e := range unit {
			unitSize += pushSize(e)
		}

		if len(current) > 0 && currentSize+unitSize > maxLen {
			flush()
		}
		current = append(current, unit...)
		currentSize += unitSize
	}
	flush()

	return partials
}

// unitize splits the flat element sequence into indivisible units: the
// 3-element preamble, then one 2-element (marker, chunk) unit per chunk.
func unitize(elements []element) [][]element {
	if len(elements) < 3 {
		return nil
	}
	units := [][]element{elements[:3]}
	for i := 3; i+1 < len(elements); i += 2 {
		units = append(units, elements[i:i+2])
	}
	return units
}

// pushSize estimates the serialized byte length of pushing e onto a script,
// used only to bound partial size during packing.
func pushSize(e element) int {
	if e.isInt {
		return len(encodeScriptNum(e.n)) + 1
	}
	return pushDataSize(len(e.data))
}

// pushDataSize estimates the byte cost of an OP_PUSHDATA for n bytes of
// data, including the push-length prefix.
func pushDataSize(n int) int {
	switch {
	case n == 0:
		return 1
	case n <= 75:
		return 1 + n
	case n <= 255:
		return 2 + n
	case n <= 65535:
		return 3 + n
	default:
		return 5 + n
	}
}

// encodeScriptNum minimally encodes v the way Bitcoin-family script numbers
// are encoded: little-endian magnitude with the sign carried in the high
// bit of the last byte, extended with a zero byte when the magnitude's
// natural high bit is already set. Zero encodes to the empty byte string
// (OP_0).
func encodeScriptNum(v int64) []byte {
	if v == 0 {
		return nil
	}

	negative := v < 0
	abs := v
	if negative {
		abs = -abs
	}

	var result []byte
	for abs > 0 {
		result = append(result, byte(abs&0xff))
		abs >>= 8
	}

	if result[len(result)-1]&0x80 != 0 {
		if negative {
			result = append(result, 0x80)
		} else {
			result = append(result, 0x00)
		}
	} else if negative {
		result[len(result)-1] |= 0x80
	}

	return result
}
