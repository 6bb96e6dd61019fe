package qr

import "strings"

// pair is one tag/value segment of a payload.
type pair struct {
	Key   string
	Value string
}

type tokState int

const (
	stSeek tokState = iota
	stKey
	stQuotedKey
	stAfterKey
	stValueStart
	stValue
	stQuotedValue
)

// tokenize splits a payload into tag/value pairs. It accepts the JSON-like
// form ({"k":"v",...}) and delimiter separated forms (k=v;k:v|...). Keys
// without a value are dropped, as is a quoted value cut off by the end of
// the input.
func tokenize(payload string) []pair {
	jsonLike := strings.HasPrefix(strings.TrimSpace(payload), "{")

	isDelim := func(r rune) bool {
		switch r {
		case ';', '|', '&', '\n', '\r', '}', '{':
			return true
		case ',':
			return jsonLike
		}

		return false
	}

	var (
		pairs   []pair
		state   = stSeek
		key     strings.Builder
		val     strings.Builder
		escaped bool
	)

	emit := func() {
		k := strings.TrimSpace(key.String())
		if k != "" {
			pairs = append(pairs, pair{Key: k, Value: strings.TrimSpace(val.String())})
		}

		key.Reset()
		val.Reset()
	}

	reset := func() {
		key.Reset()
		val.Reset()
	}

	for _, r := range payload {
		switch state {
		case stSeek:
			switch {
			case r == '"':
				state = stQuotedKey
			case isDelim(r) || r == ' ' || r == '\t':
			default:
				key.WriteRune(r)

				state = stKey
			}

		case stKey:
			switch {
			case r == ':' || r == '=':
				state = stValueStart
			case isDelim(r):
				reset()

				state = stSeek
			default:
				key.WriteRune(r)
			}

		case stQuotedKey:
			switch {
			case escaped:
				key.WriteRune(r)

				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				state = stAfterKey
			default:
				key.WriteRune(r)
			}

		case stAfterKey:
			switch {
			case r == ':' || r == '=':
				state = stValueStart
			case r == ' ' || r == '\t':
			default:
				reset()

				state = stSeek
			}

		case stValueStart:
			switch {
			case r == '"':
				state = stQuotedValue
			case r == ' ' || r == '\t':
			case isDelim(r):
				emit()

				state = stSeek
			default:
				val.WriteRune(r)

				state = stValue
			}

		case stValue:
			if isDelim(r) {
				emit()

				state = stSeek

				continue
			}

			val.WriteRune(r)

		case stQuotedValue:
			switch {
			case escaped:
				val.WriteRune(r)

				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				emit()

				state = stSeek
			default:
				val.WriteRune(r)
			}
		}
	}

	if state == stValue {
		emit()
	}

	return pairs
}
