package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateNormalized_EmptyContent(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		New().CalculateNormalized([]byte("\n\n")))
}

func TestCalculateNormalized(t *testing.T) {
	calc := New()
	base := calc.CalculateNormalized([]byte("Name,City\nJane,Springfield"))

	tests := []struct {
		name    string
		content string
		same    bool
	}{
		{"crlf endings", "Name,City\r\nJane,Springfield\r\n", true},
		{"bare cr endings", "Name,City\rJane,Springfield\r", true},
		{"byte order mark", "\xEF\xBB\xBFName,City\nJane,Springfield\n\n\n", true},
		{"changed value", "Name,City\nJane,Shelbyville\n", false},
		{"case matters", "name,city\njane,springfield\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.CalculateNormalized([]byte(tt.content))
			if tt.same {
				assert.Equal(t, base, got)
			} else {
				assert.NotEqual(t, base, got)
			}
		})
	}
}
