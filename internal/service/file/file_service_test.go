package filesvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateUploadRejectsInvalidOffer(t *testing.T) {
	s := &Service{}

	cases := []struct {
		name  string
		offer Offer
	}{
		{"zero file size", Offer{FileName: "a.txt", FileSize: 0, Recipients: []string{"bob"}}},
		{"negative file size", Offer{FileName: "a.txt", FileSize: -1, Recipients: []string{"bob"}}},
		{"empty file name", Offer{FileName: "", FileSize: 10, Recipients: []string{"bob"}}},
		{"no recipients", Offer{FileName: "a.txt", FileSize: 10, Recipients: nil}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info, err := s.CreateUpload(tc.offer)
			assert.Nil(t, info)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "report.pdf", sanitizeFileName("report.pdf"))
	assert.Equal(t, "my_file_v2.txt", sanitizeFileName("my file v2.txt"))
	assert.Equal(t, "___", sanitizeFileName("/\\:"))
	assert.Equal(t, "file", sanitizeFileName(""))
}

func TestDedupe(t *testing.T) {
	assert.ElementsMatch(t, []string{"a", "b", "c"}, dedupe([]string{"a", "b", "a", "c", "b"}))
}
