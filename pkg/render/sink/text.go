package sink

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"unicode/utf8"
)

const (
	fontCharWidth = 0.6
	labelPadding  = 3.0
	minLabelChars = 3
)

// fitLabel shortens label to the number of characters that fit in width
// pixels. It returns "" when not even a short prefix fits.
func fitLabel(label string, width, charWidth float64) string {
	maxChars := int((width - 2*labelPadding) / charWidth)
	if maxChars < minLabelChars {
		return ""
	}
	if utf8.RuneCountInString(label) <= maxChars {
		return label
	}
	runes := []rune(label)
	return string(runes[:maxChars-2]) + ".."
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func hexAddr(addr uint64) string {
	return "0x" + strconv.FormatUint(addr, 16)
}
