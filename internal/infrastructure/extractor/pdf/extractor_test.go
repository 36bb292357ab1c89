package pdf

import (
	"testing"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

func TestExtractBytesRejectsNonPDF(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("Chapter 1\nplain text"), []byte("%PDF-1.4 truncated")} {
		if _, err := ExtractBytes(data); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("ExtractBytes(%q) expected invalid input, got %v", data, err)
		}
	}
}
