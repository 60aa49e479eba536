package proofdoc

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/proofdoc/rocq-proofdoc/internal/rocq"
)

// offsets.go — converts an LSP Position (UTF-16 code units) into a byte
// offset into a UTF-8 source buffer, since Go strings are UTF-8 but
// coq-lsp's wire protocol counts characters in UTF-16 code units.

// ByteOffset returns the byte offset in source that pos denotes.
func ByteOffset(source string, pos rocq.Position) int {
	lineStart := 0
	for line := 0; line < pos.Line; line++ {
		idx := strings.IndexByte(source[lineStart:], '\n')
		if idx < 0 {
			return len(source)
		}
		lineStart += idx + 1
	}
	lineEnd := len(source)
	if idx := strings.IndexByte(source[lineStart:], '\n'); idx >= 0 {
		lineEnd = lineStart + idx
	}
	return lineStart + utf16OffsetToByte(source[lineStart:lineEnd], pos.Character)
}

// utf16OffsetToByte walks line rune-by-rune, counting UTF-16 code units
// (2 for astral-plane runes needing a surrogate pair, 1 otherwise) until
// units reaches target, returning the corresponding byte offset.
func utf16OffsetToByte(line string, target int) int {
	units := 0
	byteOff := 0
	for byteOff < len(line) {
		if units >= target {
			return byteOff
		}
		r, size := utf8.DecodeRuneInString(line[byteOff:])
		if r1, r2 := utf16.EncodeRune(r); r1 == 0xFFFD && r2 == 0xFFFD {
			units++
		} else {
			units += 2
		}
		byteOff += size
	}
	return len(line)
}
