package jsonrepair

import "encoding/json"

const (
	expectKey uint8 = iota
	expectColon
	expectValue
	afterValue
)

type frame struct {
	open  byte
	state uint8
}

// scanState is the result of walking a document outside of string literals.
type scanState struct {
	frames       []frame
	stack        []byte
	inString     bool
	escaped      bool
	stringIsKey  bool
	literalStart int
	// lastComma is the index of the last ',' outside string literals.
	lastComma int
	// safeAt is the last offset where doc[:safeAt]+closers(safeStack) is complete.
	safeAt    int
	safeStack []byte
	// rootEnd is the offset just past the brace closing the root object.
	rootEnd int
}

func scan(s string) scanState {
	st := scanState{lastComma: -1, safeAt: -1, literalStart: -1}

	for i := 0; i < len(s); i++ {
		c := s[i]

		if st.inString {
			switch {
			case st.escaped:
				st.escaped = false
			case c == '\\':
				st.escaped = true
			case c == '"':
				st.inString = false
				if st.stringIsKey {
					st.setTop(expectColon)
				} else {
					st.valueDone(i + 1)
				}
			}
			continue
		}

		if st.literalStart >= 0 {
			if isLiteralByte(c) {
				continue
			}
			st.endLiteral(s, i)
		}

		switch c {
		case '"':
			st.inString = true
			top, ok := st.top()
			st.stringIsKey = ok && top.open == '{' && top.state == expectKey
		case '{':
			st.push(c, expectKey)
			st.mark(i + 1)
		case '[':
			st.push(c, expectValue)
			st.mark(i + 1)
		case '}', ']':
			if len(st.frames) == 0 {
				return st
			}
			st.pop()
			if len(st.frames) == 0 {
				st.mark(i + 1)
				st.rootEnd = i + 1
				return st
			}
			st.valueDone(i + 1)
		case ',':
			st.lastComma = i
			if top, ok := st.top(); ok && top.open == '{' {
				st.setTop(expectKey)
			} else {
				st.setTop(expectValue)
			}
		case ':':
			st.setTop(expectValue)
		case ' ', '\t', '\r', '\n':
		default:
			if len(st.frames) > 0 {
				st.literalStart = i
			}
		}
	}

	return st
}

func (st *scanState) endLiteral(s string, end int) {
	lit := s[st.literalStart:end]
	st.literalStart = -1
	if json.Valid([]byte(lit)) {
		st.valueDone(end)
	}
}

func (st *scanState) valueDone(pos int) {
	st.setTop(afterValue)
	st.mark(pos)
}

func (st *scanState) mark(pos int) {
	st.safeAt = pos
	st.safeStack = append([]byte(nil), st.stack...)
}

func (st *scanState) push(open byte, state uint8) {
	st.frames = append(st.frames, frame{open: open, state: state})
	st.stack = append(st.stack, open)
}

func (st *scanState) pop() {
	st.frames = st.frames[:len(st.frames)-1]
	st.stack = st.stack[:len(st.stack)-1]
}

func (st *scanState) top() (frame, bool) {
	if len(st.frames) == 0 {
		return frame{}, false
	}
	return st.frames[len(st.frames)-1], true
}

func (st *scanState) setTop(state uint8) {
	if len(st.frames) > 0 {
		st.frames[len(st.frames)-1].state = state
	}
}

func isLiteralByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c == '+' || c == '-' || c == '.'
}
