package htmlgen

import "strings"

func tagSet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(list) {
		set[t] = true
	}
	return set
}

// Void elements self-close and never render children.
var voidElements = tagSet(
	"area base br col embed hr img input link meta param source track wbr")

// Inline elements skip the newline treatment in pretty output.
var inlineElements = tagSet(
	"a abbr b bdi bdo br cite code data dfn em i kbd mark q rb rp rt rtc " +
		"ruby s samp small span strong sub sup time u var wbr")

// Boolean attributes render as a bare name when true and not at all
// when false.
var booleanAttrs = tagSet(
	"allowfullscreen async autofocus autoplay checked controls default " +
		"defer disabled formnovalidate hidden ismap itemscope loop multiple " +
		"muted nomodule novalidate open playsinline readonly required " +
		"reversed selected")

func isVoidElement(tag string) bool { return voidElements[tag] }

func isInlineElement(tag string) bool { return inlineElements[tag] }

func isBooleanAttr(name string) bool { return booleanAttrs[name] }

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Attribute values additionally escape whitespace that could break
// attribute parsing.
var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"\n", "&#10;",
	"\r", "&#13;",
	"\t", "&#9;",
)

func escapeText(s string) string { return textEscaper.Replace(s) }
func escapeAttr(s string) string { return attrEscaper.Replace(s) }
