package normalizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var dReplacer = strings.NewReplacer("đ", "d", "Đ", "D")

// StripDiacritics loại bỏ dấu tiếng Việt (NFD, bỏ dấu kết hợp, NFC) và đổi đ thành d.
func StripDiacritics(s string) string {
	// transform.Chain giữ trạng thái nên phải tạo mới cho mỗi lần gọi
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return dReplacer.Replace(out)
}

// FoldToASCII bỏ dấu rồi phiên âm các ký tự ngoài ASCII còn sót lại, kết quả là chữ thường.
func FoldToASCII(s string) string {
	out := StripDiacritics(s)
	if isASCII(out) {
		return out
	}
	return strings.ToLower(unidecode.Unidecode(out))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// isWordRune xác định ký tự thuộc một từ trước khi bỏ dấu.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
