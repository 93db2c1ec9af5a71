package openai

import "strings"

const (
	thinkOpenTag      = "<think>"
	thinkCloseTag     = "</think>"
	thinkResponseMark = "###Response"
)

// contentReasoningSplitter separates DeepSeek-R1-style reasoning that some
// OpenAI-compatible endpoints embed directly inside delta.Content, rather
// than in a dedicated reasoning field, into thinking/text deltas. A
// reasoning block opens at "<think>" and closes at either the matching
// "</think>" tag or a "###Response" marker some deployments emit instead of
// a close tag before the final answer. Either marker may be split across
// adjacent stream chunks, so content is buffered until there is enough of
// it to resolve.
type contentReasoningSplitter struct {
	open bool
	buf  string
}

// feed consumes one content delta and returns the portion that should be
// emitted as reasoning and the portion that should be emitted as ordinary
// text. Bytes that might be the start of a split marker are held back in
// buf until the next feed or flush.
func (c *contentReasoningSplitter) feed(delta string) (thinking, text string) {
	c.buf += delta
	for {
		if !c.open {
			idx := strings.Index(c.buf, thinkOpenTag)
			if idx < 0 {
				keep := partialSuffixLen(c.buf, thinkOpenTag)
				text += c.buf[:len(c.buf)-keep]
				c.buf = c.buf[len(c.buf)-keep:]
				return thinking, text
			}
			text += c.buf[:idx]
			c.buf = c.buf[idx+len(thinkOpenTag):]
			c.open = true
			continue
		}

		closeIdx := strings.Index(c.buf, thinkCloseTag)
		markIdx := strings.Index(c.buf, thinkResponseMark)
		switch {
		case closeIdx >= 0 && (markIdx < 0 || closeIdx <= markIdx):
			thinking += c.buf[:closeIdx]
			c.buf = c.buf[closeIdx+len(thinkCloseTag):]
			c.open = false
		case markIdx >= 0:
			thinking += c.buf[:markIdx]
			c.buf = c.buf[markIdx+len(thinkResponseMark):]
			c.open = false
		default:
			keep := partialSuffixLen(c.buf, thinkCloseTag)
			if n := partialSuffixLen(c.buf, thinkResponseMark); n > keep {
				keep = n
			}
			thinking += c.buf[:len(c.buf)-keep]
			c.buf = c.buf[len(c.buf)-keep:]
			return thinking, text
		}
	}
}

// flush returns any content still buffered at end-of-stream, classified by
// whether a reasoning block was left open (an unterminated "<think>" is
// treated as reasoning through end-of-stream rather than discarded).
func (c *contentReasoningSplitter) flush() (thinking, text string) {
	if c.buf == "" {
		return "", ""
	}
	if c.open {
		thinking, c.buf = c.buf, ""
		return thinking, ""
	}
	text, c.buf = c.buf, ""
	return "", text
}

// partialSuffixLen returns the length of the longest suffix of s that is
// also a proper prefix of marker, so a marker split across a chunk boundary
// is not mistaken for plain content and emitted early.
func partialSuffixLen(s, marker string) int {
	max := len(marker) - 1
	if max > len(s) {
		max = len(s)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(s, marker[:n]) {
			return n
		}
	}
	return 0
}
